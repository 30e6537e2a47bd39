package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"serialtool/serial"
)

const (
	// DefaultPollInterval is the sleep between loop iterations
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultEventBuffer is the capacity of the events channel
	DefaultEventBuffer = 256

	readBufferSize = 4096
)

// State represents the current state of the worker
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateClosing State = "closing"
	StateError   State = "error"
)

// Info is a snapshot of the current or most recent session
type Info struct {
	SessionID    string    `json:"session_id,omitempty"`
	Device       string    `json:"device,omitempty"`
	BaudRate     int       `json:"baud_rate,omitempty"`
	State        State     `json:"state"`
	OpenedAt     time.Time `json:"opened_at,omitempty"`
	BytesRead    int64     `json:"bytes_read"`
	BytesWritten int64     `json:"bytes_written"`
	Errors       int64     `json:"errors"`
	LastError    string    `json:"last_error,omitempty"`
}

// Option configures a Worker
type Option func(*Worker)

// WithPollInterval sets the sleep between loop iterations
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithReadTimeout sets how long a single read may wait for input
func WithReadTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.readTimeout = d
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Worker owns at most one open port at a time and streams its traffic as
// events. The port is read and closed only by the worker goroutine; other
// goroutines interact through Send and RequestClose.
//
// A Worker is reusable: once a session has fully stopped, Open starts the next
// one. Events from every session arrive on the same channel, which must be
// drained by the consumer.
type Worker struct {
	opener       serial.Opener
	logger       *slog.Logger
	pollInterval time.Duration
	readTimeout  time.Duration
	events       chan Event

	running        atomic.Bool
	closeRequested atomic.Bool

	state      State
	stateMutex sync.RWMutex

	// mu guards the session fields below and serializes Send against teardown
	mu        sync.Mutex
	port      *serial.PortWithStats
	id        string
	device    string
	baudRate  int
	openedAt  time.Time
	lastStats serial.Stats
	lastError string
	done      chan struct{}
}

// NewWorker creates an idle worker that opens ports through opener
func NewWorker(opener serial.Opener, opts ...Option) *Worker {
	w := &Worker{
		opener:       opener,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval: DefaultPollInterval,
		readTimeout:  serial.DefaultReadTimeout,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.events = make(chan Event, DefaultEventBuffer)
	return w
}

// Events returns the channel every session event is delivered on
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Open starts a session on device at baudRate. On failure an OpenError event
// is emitted, the same error is returned, and nothing is retried. Cancelling
// ctx has the same effect as RequestClose.
func (w *Worker) Open(ctx context.Context, device string, baudRate int) error {
	w.mu.Lock()
	if w.done != nil {
		select {
		case <-w.done:
		default:
			w.mu.Unlock()
			return ErrAlreadyRunning
		}
	}

	port, err := w.openPort(device, baudRate)
	if err != nil {
		openErr := &OpenError{Device: device, BaudRate: baudRate, Err: err}
		w.id = ""
		w.device = device
		w.baudRate = baudRate
		w.openedAt = time.Time{}
		w.lastStats = serial.Stats{}
		w.lastError = openErr.Error()
		w.mu.Unlock()

		w.setState(StateError)
		w.logger.Error("Failed to open port", "device", device, "baud", baudRate, "error", err)
		w.emit(Event{Kind: EventOpenError, Device: device, BaudRate: baudRate, Err: openErr, Time: time.Now()})
		return openErr
	}

	id := uuid.NewString()
	done := make(chan struct{})
	w.port = port
	w.id = id
	w.device = device
	w.baudRate = baudRate
	w.openedAt = time.Now()
	w.lastStats = serial.Stats{}
	w.lastError = ""
	w.done = done
	w.closeRequested.Store(false)
	w.transition(true, StateRunning)
	w.mu.Unlock()

	logger := w.logger.With("device", device, "session_id", id)
	logger.Info("Session opened", "baud", baudRate)
	w.emit(Event{Kind: EventOpened, SessionID: id, Device: device, BaudRate: baudRate, Time: time.Now()})

	go w.pollLoop(ctx, port, id, done, logger)
	return nil
}

func (w *Worker) openPort(device string, baudRate int) (*serial.PortWithStats, error) {
	if baudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate: %d", baudRate)
	}
	port, err := w.opener(serial.PortConfig{
		Device:      device,
		BaudRate:    baudRate,
		ReadTimeout: w.readTimeout,
	})
	if err != nil {
		return nil, err
	}
	return serial.NewPortWithStats(port), nil
}

// RequestClose asks the worker to close the port on its next iteration. It is
// idempotent and never blocks.
func (w *Worker) RequestClose() {
	w.stateMutex.Lock()
	defer w.stateMutex.Unlock()

	if !w.closeRequested.Swap(true) && w.running.Load() {
		w.state = StateClosing
	}
}

// Wait blocks until the current session, if any, has fully stopped
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Stop requests a close and waits for it to complete or for ctx to end
func (w *Worker) Stop(ctx context.Context) error {
	w.RequestClose()

	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop session: %w", ctx.Err())
	}
}

// Send writes data to the open port. With no running session it does nothing
// and returns (false, nil). A transport failure emits a WriteError event and
// is returned; the session stays open.
func (w *Worker) Send(data []byte) (bool, error) {
	w.mu.Lock()
	if !w.running.Load() || w.port == nil || !w.port.IsOpen() {
		w.mu.Unlock()
		return false, nil
	}

	_, err := w.port.Write(data)
	if err == nil {
		w.mu.Unlock()
		return true, nil
	}

	writeErr := &WriteError{Device: w.device, Err: err}
	w.lastError = writeErr.Error()
	ev := Event{Kind: EventWriteError, SessionID: w.id, Device: w.device, BaudRate: w.baudRate, Err: writeErr, Time: time.Now()}
	w.mu.Unlock()

	w.logger.Error("Write failed", "device", ev.Device, "session_id", ev.SessionID, "error", err)
	w.emit(ev)
	return false, writeErr
}

// Running reports whether a session is open
func (w *Worker) Running() bool {
	return w.running.Load()
}

// State returns the current worker state
func (w *Worker) State() State {
	w.stateMutex.RLock()
	defer w.stateMutex.RUnlock()
	return w.state
}

// Info returns a snapshot of the current or most recent session
func (w *Worker) Info() Info {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := w.lastStats
	if w.port != nil {
		stats = w.port.Stats()
	}
	return Info{
		SessionID:    w.id,
		Device:       w.device,
		BaudRate:     w.baudRate,
		State:        w.State(),
		OpenedAt:     w.openedAt,
		BytesRead:    stats.BytesRead,
		BytesWritten: stats.BytesWritten,
		Errors:       stats.Errors,
		LastError:    w.lastError,
	}
}

func (w *Worker) setState(state State) {
	w.stateMutex.Lock()
	defer w.stateMutex.Unlock()
	w.state = state
}

// transition updates running and state together so RequestClose never marks
// a finished session as closing
func (w *Worker) transition(running bool, state State) {
	w.stateMutex.Lock()
	defer w.stateMutex.Unlock()
	w.running.Store(running)
	w.state = state
}

func (w *Worker) emit(ev Event) {
	w.events <- ev
}

// pollLoop reads whatever the driver has buffered, emits it, then checks for
// a close request. Reads are bounded by the port's read timeout, so a request
// is observed within one read timeout plus one poll interval.
func (w *Worker) pollLoop(ctx context.Context, port *serial.PortWithStats, id string, done chan struct{}, logger *slog.Logger) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	for {
		n, err := port.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			logger.Debug("Received bytes", "bytes", n)
			w.emit(Event{Kind: EventReceived, SessionID: id, Device: port.Device(), BaudRate: port.BaudRate(), Data: data, Time: time.Now()})
		}

		if err != nil && !w.closeRequested.Load() {
			readErr := &ReadError{Device: port.Device(), Err: err}
			logger.Error("Read failed, ending session", "error", err)
			w.teardown(port, id, logger, readErr)
			return
		}

		if w.closeRequested.Load() || ctx.Err() != nil {
			w.teardown(port, id, logger, nil)
			return
		}

		timer.Reset(w.pollInterval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

// teardown closes the port from the owning goroutine. A non-nil cause is
// emitted as a ReadError before the Closed event.
func (w *Worker) teardown(port *serial.PortWithStats, id string, logger *slog.Logger, cause *ReadError) {
	w.mu.Lock()
	if err := port.Close(); err != nil {
		logger.Warn("Failed to close port", "error", err)
	}
	stats := port.Stats()
	w.lastStats = stats
	w.port = nil
	if cause != nil {
		w.lastError = cause.Error()
		w.transition(false, StateError)
	} else {
		w.transition(false, StateIdle)
	}
	w.mu.Unlock()

	now := time.Now()
	if cause != nil {
		w.emit(Event{Kind: EventReadError, SessionID: id, Device: port.Device(), BaudRate: port.BaudRate(), Err: cause, Time: now})
	}

	logger.Info("Session closed",
		"bytes_read", stats.BytesRead,
		"bytes_written", stats.BytesWritten,
	)
	w.emit(Event{Kind: EventClosed, SessionID: id, Device: port.Device(), BaudRate: port.BaudRate(), Time: now})
}

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"serialtool/codec"
	"serialtool/eventlog"
	"serialtool/library"
	"serialtool/serial"
	"serialtool/session"
)

// DirectionStatus tags display-only lines; they are never written to the event log
const DirectionStatus eventlog.Direction = "STATUS"

// DefaultRecentLimit is how many display lines are kept for late subscribers
const DefaultRecentLimit = 500

// Line is one rendered entry on the display surface
type Line struct {
	Direction eventlog.Direction `json:"direction"`
	Time      time.Time          `json:"time"`
	Text      string             `json:"text"`
}

func (l Line) String() string {
	return eventlog.FormatLine(l.Direction, l.Time, l.Text)
}

// Sink receives every display line. It is called from the event goroutine as
// well as from the caller of Send, so implementations must be safe for
// concurrent use.
type Sink interface {
	Display(line Line)
}

// Notifier is told about session lifecycle and error events
type Notifier interface {
	NotifyEvent(ev session.Event)
}

// Options configures a Controller. Zero values select the defaults noted.
type Options struct {
	Opener         serial.Opener                     // serial.Open
	Lister         func() ([]string, error)          // serial.ListPorts
	DetailedLister func() ([]serial.PortInfo, error) // serial.ListDetailedPorts
	EventLog       *eventlog.Log                     // ./logs
	Library        *library.Library                  // empty
	LibraryPath    string                            // library.DefaultPath
	Notifier       Notifier
	Sink           Sink
	Logger         *slog.Logger
	Mode           codec.Mode // ASCII
	RecentLimit    int        // DefaultRecentLimit
	WorkerOptions  []session.Option
}

// Controller glues one session worker to the event log and the display
// surface. It holds the application state the presentation layer renders:
// display mode, command library and recent lines.
type Controller struct {
	worker         *session.Worker
	log            *eventlog.Log
	library        *library.Library
	libraryPath    string
	notifier       Notifier
	sink           Sink
	lister         func() ([]string, error)
	detailedLister func() ([]serial.PortInfo, error)
	logger         *slog.Logger

	mu          sync.RWMutex
	mode        codec.Mode
	recent      []Line
	recentLimit int

	quit      chan struct{}
	pumpDone  chan struct{}
	closeOnce sync.Once
}

// New creates a controller and starts routing worker events
func New(opts Options) *Controller {
	if opts.Opener == nil {
		opts.Opener = serial.Open
	}
	if opts.Lister == nil {
		opts.Lister = serial.ListPorts
	}
	if opts.DetailedLister == nil {
		opts.DetailedLister = serial.ListDetailedPorts
	}
	if opts.EventLog == nil {
		opts.EventLog = eventlog.New(eventlog.DefaultDirectory)
	}
	if opts.Library == nil {
		opts.Library = library.New()
	}
	if opts.LibraryPath == "" {
		opts.LibraryPath = library.DefaultPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if _, err := codec.Get(opts.Mode); err != nil {
		opts.Mode = codec.ModeASCII
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	workerOpts := append([]session.Option{session.WithLogger(opts.Logger)}, opts.WorkerOptions...)

	c := &Controller{
		worker:         session.NewWorker(opts.Opener, workerOpts...),
		log:            opts.EventLog,
		library:        opts.Library,
		libraryPath:    opts.LibraryPath,
		notifier:       opts.Notifier,
		sink:           opts.Sink,
		lister:         opts.Lister,
		detailedLister: opts.DetailedLister,
		logger:         opts.Logger,
		mode:           opts.Mode,
		recentLimit:    opts.RecentLimit,
		quit:           make(chan struct{}),
		pumpDone:       make(chan struct{}),
	}

	go c.pump()
	return c
}

// Start opens a session, stopping and joining any current one first
func (c *Controller) Start(ctx context.Context, device string, baudRate int) error {
	if c.worker.Running() {
		if err := c.Stop(ctx); err != nil {
			return err
		}
	}
	c.worker.Wait()

	c.status(fmt.Sprintf("Opening %s at %d baud", device, baudRate))
	return c.worker.Open(ctx, device, baudRate)
}

// Stop ends the current session and waits until the port is closed
func (c *Controller) Stop(ctx context.Context) error {
	if !c.worker.Running() {
		return nil
	}
	return c.worker.Stop(ctx)
}

// Running reports whether a session is open
func (c *Controller) Running() bool {
	return c.worker.Running()
}

// SessionInfo returns a snapshot of the current or most recent session
func (c *Controller) SessionInfo() session.Info {
	return c.worker.Info()
}

// Send encodes text in the current display mode and writes it. Invalid hex
// input is reported and returned as a *codec.FormatError and nothing is sent.
// Without an open session the text is dropped and a status line says so.
// Empty text is ignored.
func (c *Controller) Send(text string) error {
	if text == "" {
		return nil
	}
	mode := c.Mode()

	data, err := codec.Encode(text, mode)
	if err != nil {
		c.record(eventlog.DirectionError, time.Now(), err.Error())
		return err
	}

	sent, err := c.worker.Send(data)
	if err != nil {
		return err
	}
	if !sent {
		c.status("Not connected, nothing sent")
		return nil
	}

	c.record(eventlog.DirectionTX, time.Now(), codec.Decode(data, mode))
	return nil
}

// SendStored sends the library entry at index, switching the display mode to
// the entry's encoding first. An entry whose encoding is not a known mode is
// sent in the current mode. An out-of-range index returns *library.IndexError.
func (c *Controller) SendStored(index int) error {
	entry, err := c.library.GetAt(index)
	if err != nil {
		return err
	}
	if err := c.SetMode(entry.Encoding); err != nil {
		c.logger.Warn("Stored command has no usable type, sending in current mode",
			"name", entry.Name,
			"type", entry.Encoding,
			"mode", c.Mode(),
		)
	}
	return c.Send(entry.Payload)
}

// SetMode selects the display mode used for rendering and for outbound text
func (c *Controller) SetMode(mode codec.Mode) error {
	if _, err := codec.Get(mode); err != nil {
		return err
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return nil
}

// Mode returns the current display mode
func (c *Controller) Mode() codec.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetLogDirectory redirects subsequent event log lines to dir
func (c *Controller) SetLogDirectory(dir string) {
	c.log.SetDirectory(dir)
	c.status(fmt.Sprintf("Log directory set to %s", c.log.Directory()))
}

// LogPath returns the file events are currently appended to
func (c *Controller) LogPath() string {
	return c.log.Path()
}

// Library returns the command library
func (c *Controller) Library() *library.Library {
	return c.library
}

// ListPorts returns the device identifiers currently present
func (c *Controller) ListPorts() ([]string, error) {
	return c.lister()
}

// DetailedPorts returns the present devices with USB details where known
func (c *Controller) DetailedPorts() ([]serial.PortInfo, error) {
	return c.detailedLister()
}

// Recent returns up to limit of the most recent display lines, oldest first.
// A non-positive limit returns everything retained.
func (c *Controller) Recent(limit int) []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines := c.recent
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	result := make([]Line, len(lines))
	copy(result, lines)
	return result
}

// Close stops the session, drains its events and saves the library to its
// default path when it is non-empty.
func (c *Controller) Close(ctx context.Context) error {
	var errs []error
	if err := c.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	c.closeOnce.Do(func() { close(c.quit) })
	<-c.pumpDone

	if c.library.Len() > 0 {
		if err := c.library.Save(c.libraryPath); err != nil {
			c.logger.Error("Failed to save command library", "path", c.libraryPath, "error", err)
			errs = append(errs, err)
		} else {
			c.logger.Info("Command library saved", "path", c.libraryPath, "entries", c.library.Len())
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) pump() {
	defer close(c.pumpDone)

	events := c.worker.Events()
	for {
		select {
		case ev := <-events:
			c.handleEvent(ev)
		case <-c.quit:
			for {
				select {
				case ev := <-events:
					c.handleEvent(ev)
				default:
					return
				}
			}
		}
	}
}

func (c *Controller) handleEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventReceived:
		c.record(eventlog.DirectionRX, ev.Time, codec.Decode(ev.Data, c.Mode()))
	case session.EventOpened:
		c.status(fmt.Sprintf("Opened %s at %d baud", ev.Device, ev.BaudRate))
	case session.EventClosed:
		c.status(fmt.Sprintf("Closed %s", ev.Device))
	default:
		if ev.IsError() && ev.Err != nil {
			c.record(eventlog.DirectionError, ev.Time, ev.Err.Error())
		}
	}

	if c.notifier != nil && ev.Kind != session.EventReceived {
		c.notifier.NotifyEvent(ev)
	}
}

// record writes a traffic line to the event log and shows it
func (c *Controller) record(dir eventlog.Direction, t time.Time, text string) {
	if err := c.log.Record(dir, t, text); err != nil {
		c.logger.Warn("Failed to append event log", "path", c.log.Path(), "error", err)
	}
	c.display(Line{Direction: dir, Time: t, Text: text})
}

func (c *Controller) status(text string) {
	c.display(Line{Direction: DirectionStatus, Time: time.Now(), Text: text})
}

func (c *Controller) display(line Line) {
	c.mu.Lock()
	c.recent = append(c.recent, line)
	if len(c.recent) > c.recentLimit {
		c.recent = c.recent[len(c.recent)-c.recentLimit:]
	}
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.Display(line)
	}
}

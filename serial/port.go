package serial

import (
	"errors"
	"io"
	"time"

	"go.uber.org/atomic"
)

// DefaultReadTimeout bounds how long a Read waits for input before returning
// whatever is buffered (possibly nothing).
const DefaultReadTimeout = 100 * time.Millisecond

// ErrPortClosed is returned by operations on a handle that is no longer open.
var ErrPortClosed = errors.New("port is closed")

// PortConfig contains serial port configuration settings
type PortConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string // "none", "odd", "even", "mark", "space"
	ReadTimeout time.Duration
}

// Port is a single open serial connection.
//
// Read returns the bytes already buffered by the driver, waiting at most the
// configured read timeout; it returns (0, nil) when nothing arrived.
type Port interface {
	io.ReadWriteCloser

	// Device returns the device identifier the port was opened with
	Device() string

	// BaudRate returns the line rate the port was opened at
	BaudRate() int

	// IsOpen returns true if the port is currently open
	IsOpen() bool
}

// Opener opens a port for the given configuration. Open is the hardware
// implementation; tests substitute MockBus.Open.
type Opener func(cfg PortConfig) (Port, error)

// Stats tracks traffic for a serial port
type Stats struct {
	BytesRead    int64
	BytesWritten int64
	Errors       int64
	OpenedAt     time.Time
	LastRead     time.Time
	LastWrite    time.Time
}

// PortWithStats wraps a Port with statistics tracking. Reads happen on the
// session goroutine while writes and Stats calls come from elsewhere, so the
// counters are atomic.
type PortWithStats struct {
	Port

	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
	errors       atomic.Int64
	lastRead     atomic.Time
	lastWrite    atomic.Time
	openedAt     time.Time
}

// NewPortWithStats creates a new port wrapper with statistics
func NewPortWithStats(port Port) *PortWithStats {
	return &PortWithStats{
		Port:     port,
		openedAt: time.Now(),
	}
}

// Read reads from the port and tracks statistics
func (p *PortWithStats) Read(buf []byte) (int, error) {
	n, err := p.Port.Read(buf)
	if n > 0 {
		p.bytesRead.Add(int64(n))
		p.lastRead.Store(time.Now())
	}
	if err != nil {
		p.errors.Inc()
	}
	return n, err
}

// Write writes data to the port and tracks statistics
func (p *PortWithStats) Write(data []byte) (int, error) {
	n, err := p.Port.Write(data)
	if err != nil {
		p.errors.Inc()
		return n, err
	}
	p.bytesWritten.Add(int64(n))
	p.lastWrite.Store(time.Now())
	return n, nil
}

// Stats returns a snapshot of the current statistics
func (p *PortWithStats) Stats() Stats {
	return Stats{
		BytesRead:    p.bytesRead.Load(),
		BytesWritten: p.bytesWritten.Load(),
		Errors:       p.errors.Load(),
		OpenedAt:     p.openedAt,
		LastRead:     p.lastRead.Load(),
		LastWrite:    p.lastWrite.Load(),
	}
}

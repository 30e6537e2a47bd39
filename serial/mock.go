package serial

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockPort implements Port for testing purposes. Bytes handed to Inject
// become readable exactly as a driver's receive buffer would expose them.
type MockPort struct {
	mu          sync.Mutex
	inbound     bytes.Buffer
	device      string
	baudRate    int
	isOpen      bool
	writes      [][]byte
	writeErr    error // If set, Write will return this error
	readErr     error // If set, Read will return this error once the buffer is drained
	readTimeout time.Duration
	ready       chan struct{}
}

// NewMockPort creates a new open mock port
func NewMockPort(device string, baudRate int) *MockPort {
	return &MockPort{
		device:      device,
		baudRate:    baudRate,
		isOpen:      true,
		writes:      make([][]byte, 0),
		readTimeout: DefaultReadTimeout,
		ready:       make(chan struct{}, 1),
	}
}

// Inject appends data to the receive buffer
func (p *MockPort) Inject(data []byte) {
	p.mu.Lock()
	p.inbound.Write(data)
	p.mu.Unlock()
	p.signal()
}

// Read returns everything currently buffered, waiting at most the read timeout
func (p *MockPort) Read(buf []byte) (int, error) {
	deadline := time.NewTimer(p.readTimeout)
	defer deadline.Stop()

	for {
		p.mu.Lock()
		if !p.isOpen {
			p.mu.Unlock()
			return 0, ErrPortClosed
		}
		if p.inbound.Len() > 0 {
			n, _ := p.inbound.Read(buf)
			p.mu.Unlock()
			return n, nil
		}
		if p.readErr != nil {
			err := p.readErr
			p.mu.Unlock()
			return 0, err
		}
		p.mu.Unlock()

		select {
		case <-p.ready:
		case <-deadline.C:
			return 0, nil
		}
	}
}

// Write records data written to the mock port
func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return 0, ErrPortClosed
	}

	if p.writeErr != nil {
		return 0, p.writeErr
	}

	// Store a copy of the data
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.writes = append(p.writes, dataCopy)

	return len(data), nil
}

// Close closes the mock port
func (p *MockPort) Close() error {
	p.mu.Lock()
	p.isOpen = false
	p.mu.Unlock()
	p.signal()
	return nil
}

// Device returns the mock device path
func (p *MockPort) Device() string {
	return p.device
}

// BaudRate returns the rate the mock port was opened at
func (p *MockPort) BaudRate() int {
	return p.baudRate
}

// IsOpen returns true if the mock port is open
func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// GetWrites returns all individual write operations
func (p *MockPort) GetWrites() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		result[i] = make([]byte, len(w))
		copy(result[i], w)
	}
	return result
}

// SetWriteError sets an error to be returned on subsequent writes
func (p *MockPort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// SetReadError makes Read fail with err once the receive buffer is empty
func (p *MockPort) SetReadError(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
	p.signal()
}

func (p *MockPort) signal() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// MockBus is an Opener over a set of named mock devices. Every successful
// Open creates a fresh MockPort, like a driver handing out a new handle.
type MockBus struct {
	mu          sync.Mutex
	devices     map[string]bool
	failures    map[string]error
	ports       map[string]*MockPort
	readTimeout time.Duration
}

// NewMockBus creates a bus exposing the given device names
func NewMockBus(devices ...string) *MockBus {
	b := &MockBus{
		devices:     make(map[string]bool),
		failures:    make(map[string]error),
		ports:       make(map[string]*MockPort),
		readTimeout: 20 * time.Millisecond,
	}
	for _, d := range devices {
		b.devices[d] = true
	}
	return b
}

// Open implements Opener
func (b *MockBus) Open(cfg PortConfig) (Port, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.failures[cfg.Device]; ok {
		return nil, err
	}
	if !b.devices[cfg.Device] {
		return nil, fmt.Errorf("no such device: %s", cfg.Device)
	}
	if cfg.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d for %s", cfg.BaudRate, cfg.Device)
	}
	if existing, ok := b.ports[cfg.Device]; ok && existing.IsOpen() {
		return nil, fmt.Errorf("device busy: %s", cfg.Device)
	}

	port := NewMockPort(cfg.Device, cfg.BaudRate)
	port.readTimeout = b.readTimeout
	if cfg.ReadTimeout > 0 && cfg.ReadTimeout < b.readTimeout {
		port.readTimeout = cfg.ReadTimeout
	}
	b.ports[cfg.Device] = port
	return port, nil
}

// Port returns the most recently opened handle for device, or nil
func (b *MockBus) Port(device string) *MockPort {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ports[device]
}

// AddDevice makes a device visible on the bus
func (b *MockBus) AddDevice(device string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[device] = true
}

// RemoveDevice unplugs a device
func (b *MockBus) RemoveDevice(device string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, device)
}

// FailOpen makes subsequent opens of device return err
func (b *MockBus) FailOpen(device string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[device] = err
}

// List returns the visible device names in order
func (b *MockBus) List() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.devices))
	for name := range b.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

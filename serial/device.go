package serial

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/atomic"
)

// RealPort implements Port using a real serial port
type RealPort struct {
	port   serial.Port
	config PortConfig
	isOpen atomic.Bool
}

// Open opens a serial port with the given configuration
func Open(config PortConfig) (Port, error) {
	if config.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d for %s", config.BaudRate, config.Device)
	}
	if config.DataBits == 0 {
		config.DataBits = 8
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Device, err)
	}

	// Reads must come back within the poll timeout so close requests are observed
	if err := port.SetReadTimeout(config.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	p := &RealPort{
		port:   port,
		config: config,
	}
	p.isOpen.Store(true)
	return p, nil
}

// Read returns the bytes buffered by the driver, waiting at most the read timeout
func (p *RealPort) Read(buf []byte) (int, error) {
	if !p.isOpen.Load() {
		return 0, ErrPortClosed
	}
	return p.port.Read(buf)
}

// Write writes data to the serial port
func (p *RealPort) Write(data []byte) (int, error) {
	if !p.isOpen.Load() {
		return 0, ErrPortClosed
	}
	return p.port.Write(data)
}

// Close closes the serial port
func (p *RealPort) Close() error {
	if !p.isOpen.CompareAndSwap(true, false) {
		return nil
	}
	return p.port.Close()
}

// Device returns the device path
func (p *RealPort) Device() string {
	return p.config.Device
}

// BaudRate returns the configured line rate
func (p *RealPort) BaudRate() int {
	return p.config.BaudRate
}

// IsOpen returns true if the port is currently open
func (p *RealPort) IsOpen() bool {
	return p.isOpen.Load()
}

// PortInfo describes a serial device present on the host
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts returns a list of available serial ports
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// ListDetailedPorts returns the available serial ports with USB metadata when known
func ListDetailedPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}

func convertStopBits(bits int) serial.StopBits {
	switch bits {
	case 1:
		return serial.OneStopBit
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

// Ensure RealPort satisfies Port
var _ Port = (*RealPort)(nil)

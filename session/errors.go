package session

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Open while a previous session has not
// fully stopped.
var ErrAlreadyRunning = errors.New("session already running")

// OpenError reports a device that could not be opened. The session does not start.
type OpenError struct {
	Device   string
	BaudRate int
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s at %d baud: %v", e.Device, e.BaudRate, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// WriteError reports a transport failure during send. The session stays open.
type WriteError struct {
	Device string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write to %s: %v", e.Device, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError reports a driver failure while polling, typically a device that
// was unplugged. The session ends.
type ReadError struct {
	Device string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read from %s: %v", e.Device, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

package session

import "time"

// EventKind identifies what happened to a session
type EventKind string

const (
	EventOpened     EventKind = "opened"
	EventReceived   EventKind = "received"
	EventOpenError  EventKind = "open_error"
	EventWriteError EventKind = "write_error"
	EventReadError  EventKind = "read_error"
	EventClosed     EventKind = "closed"
)

// Event is emitted by the worker for everything a consumer must react to.
// Received events carry the bytes exactly as read; error events carry the
// typed error (*OpenError, *WriteError or *ReadError).
type Event struct {
	Kind      EventKind
	SessionID string
	Device    string
	BaudRate  int
	Data      []byte
	Err       error
	Time      time.Time
}

// IsError reports whether the event carries a failure
func (e Event) IsError() bool {
	switch e.Kind {
	case EventOpenError, EventWriteError, EventReadError:
		return true
	}
	return false
}

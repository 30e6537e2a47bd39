package library

import (
	"errors"
	"fmt"
	"sync"

	"serialtool/codec"
)

// ErrInvalidEntry is returned by Entry.Validate
var ErrInvalidEntry = errors.New("invalid command entry")

// IndexError reports a row outside the library
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("command index %d out of range (have %d)", e.Index, e.Len)
}

// Entry is a named, reusable payload
type Entry struct {
	Name     string
	Payload  string
	Encoding codec.Mode
	Note     string
}

// Validate checks what the add flow requires before an entry reaches Add
func (e Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	if e.Payload == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidEntry)
	}
	if _, err := codec.Get(e.Encoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// Library is an ordered collection of entries. The row index is the key
// used for display and for send-by-row; names need not be unique.
type Library struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates a library holding a copy of entries
func New(entries ...Entry) *Library {
	l := &Library{}
	l.ReplaceAll(entries)
	return l
}

// Add appends an entry at the end
func (l *Library) Add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// RemoveAt deletes the entry at index
func (l *Library) RemoveAt(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.entries) {
		return &IndexError{Index: index, Len: len(l.entries)}
	}
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	return nil
}

// GetAt returns the entry at index
func (l *Library) GetAt(index int) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.entries) {
		return Entry{}, &IndexError{Index: index, Len: len(l.entries)}
	}
	return l.entries[index], nil
}

// ReplaceAll swaps in a new sequence wholesale
func (l *Library) ReplaceAll(entries []Entry) {
	replaced := make([]Entry, len(entries))
	copy(replaced, entries)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = replaced
}

// Entries returns a copy of the current sequence
func (l *Library) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"serialtool/codec"
)

// DefaultPath is where the library lives between runs
const DefaultPath = "commands.json"

// Record is the persisted shape of an entry
type Record struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Type    string `json:"type"`
	Note    string `json:"note"`
}

var errNotAnArray = errors.New("document is not a JSON array")

// PersistenceError reports a library document that could not be read or written
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s command library %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ToSerializable returns the ordered records for persistence
func (l *Library) ToSerializable() []Record {
	entries := l.Entries()
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = Record{
			Name:    e.Name,
			Command: e.Payload,
			Type:    string(e.Encoding),
			Note:    e.Note,
		}
	}
	return records
}

// FromSerializable builds a library from records, taken verbatim
func FromSerializable(records []Record) *Library {
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = Entry{
			Name:     r.Name,
			Payload:  r.Command,
			Encoding: codec.Mode(r.Type),
			Note:     r.Note,
		}
	}
	return New(entries...)
}

// Load reads the library at path. A missing file yields an empty library
// and no error; a malformed one yields an empty library and a
// PersistenceError the caller may report before carrying on.
func Load(path string) (*Library, error) {
	records, err := readRecords(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return New(), &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return FromSerializable(records), nil
}

// Save writes the whole library to path
func (l *Library) Save(path string) error {
	if err := writeRecords(path, l.ToSerializable()); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Export writes the whole library to a user-chosen path
func (l *Library) Export(path string) error {
	if err := writeRecords(path, l.ToSerializable()); err != nil {
		return &PersistenceError{Op: "export", Path: path, Err: err}
	}
	return nil
}

// Import replaces the library with the document at path. On any failure the
// library is left unchanged.
func (l *Library) Import(path string) error {
	records, err := readRecords(path)
	if err != nil {
		return &PersistenceError{Op: "import", Path: path, Err: err}
	}
	l.ReplaceAll(FromSerializable(records).Entries())
	return nil
}

func readRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errNotAnArray
	}
	return records, nil
}

func writeRecords(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultDirectory is used when no directory is configured
	DefaultDirectory = "logs"

	// FileName is the log file inside the directory
	FileName = "serial.log"

	// TimestampLayout has millisecond precision
	TimestampLayout = "2006-01-02 15:04:05.000"
)

// Direction tags a logged line
type Direction string

const (
	DirectionRX    Direction = "RX"
	DirectionTX    Direction = "TX"
	DirectionError Direction = "ERROR"
)

// lineBreaks keeps one event on one physical line. Backslashes are doubled
// so an escaped break cannot be confused with received text.
var lineBreaks = strings.NewReplacer(`\`, `\\`, "\r\n", `\r\n`, "\n", `\n`, "\r", `\r`)

// FormatLine renders "[DIRECTION] timestamp payload"
func FormatLine(dir Direction, t time.Time, payload string) string {
	return fmt.Sprintf("[%s] %s %s", dir, t.Format(TimestampLayout), payload)
}

// Log is an append-only traffic record. It never truncates or rotates the
// file; every Append opens, writes one line and closes it again.
type Log struct {
	mu  sync.Mutex
	dir string
}

// New creates a log writing under dir
func New(dir string) *Log {
	if dir == "" {
		dir = DefaultDirectory
	}
	return &Log{dir: dir}
}

// Append writes line followed by a newline. Safe for concurrent use.
func (l *Log) Append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(l.dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if _, err := f.WriteString(lineBreaks.Replace(line) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write log line: %w", err)
	}
	return f.Close()
}

// Record formats and appends one event
func (l *Log) Record(dir Direction, t time.Time, payload string) error {
	return l.Append(FormatLine(dir, t, payload))
}

// SetDirectory redirects subsequent appends. Existing content stays where it is.
func (l *Log) SetDirectory(dir string) {
	if dir == "" {
		dir = DefaultDirectory
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dir = dir
}

// Directory returns the current target directory
func (l *Log) Directory() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dir
}

// Path returns the current log file path
func (l *Log) Path() string {
	return filepath.Join(l.Directory(), FileName)
}

// Package codec converts between typed text and wire bytes for the two
// display modes, ASCII and HEX.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how outbound text is interpreted and how inbound bytes are rendered
type Mode string

const (
	ModeASCII Mode = "ASCII"
	ModeHex   Mode = "HEX"
)

// Placeholder replaces any byte that cannot be rendered as ASCII text
const Placeholder = '\uFFFD'

// ErrUnknownMode is returned for a mode with no registered codec
var ErrUnknownMode = errors.New("unknown display mode")

// FormatError reports text that cannot be encoded in the selected mode.
// Nothing is sent when it is returned.
type FormatError struct {
	Input  string
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid hex input at offset %d: %s", e.Offset, e.Reason)
}

// Codec defines a display mode implementation.
type Codec interface {
	// Mode returns the display mode this codec serves
	Mode() Mode

	// Description returns a human-readable description
	Description() string

	// Encode turns typed text into the bytes to transmit
	Encode(text string) ([]byte, error)

	// Decode renders received bytes as text; it never fails
	Decode(data []byte) string
}

// ParseMode parses a mode name case-insensitively
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := Get(mode); err != nil {
		return "", err
	}
	return mode, nil
}

// String implements fmt.Stringer
func (m Mode) String() string {
	return string(m)
}

// Encode converts text to bytes using the codec registered for mode
func Encode(text string, mode Mode) ([]byte, error) {
	c, err := Get(mode)
	if err != nil {
		return nil, err
	}
	return c.Encode(text)
}

// Decode renders data using the codec registered for mode. Unknown modes
// fall back to ASCII so rendering never fails.
func Decode(data []byte, mode Mode) string {
	c, err := Get(mode)
	if err != nil {
		return asciiCodec{}.Decode(data)
	}
	return c.Decode(data)
}

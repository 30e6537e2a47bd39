package codec

import (
	"encoding/hex"
	"fmt"
)

// hexCodec reads whitespace-separated hex pairs and renders bytes as
// lowercase pairs joined by single spaces.
type hexCodec struct{}

func (hexCodec) Mode() Mode { return ModeHex }

func (hexCodec) Description() string { return "space-separated hexadecimal bytes" }

// Encode parses pairs of hex digits. Whitespace may separate pairs but not
// split one, so "0a 1f" is valid while "1 2 3" and "abc" are not.
func (hexCodec) Encode(text string) ([]byte, error) {
	out := make([]byte, 0, len(text)/2)
	for i := 0; i < len(text); {
		if isSpace(text[i]) {
			i++
			continue
		}

		hi, ok := fromHexChar(text[i])
		if !ok {
			return nil, &FormatError{Input: text, Offset: i, Reason: fmt.Sprintf("invalid hex character %q", text[i])}
		}
		if i+1 >= len(text) || isSpace(text[i+1]) {
			return nil, &FormatError{Input: text, Offset: i, Reason: "odd number of hex digits"}
		}
		lo, ok := fromHexChar(text[i+1])
		if !ok {
			return nil, &FormatError{Input: text, Offset: i + 1, Reason: fmt.Sprintf("invalid hex character %q", text[i+1])}
		}

		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, nil
}

func (hexCodec) Decode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out := make([]byte, 0, len(data)*3-1)
	pair := make([]byte, 2)
	for i, c := range data {
		if i > 0 {
			out = append(out, ' ')
		}
		hex.Encode(pair, []byte{c})
		out = append(out, pair...)
	}
	return string(out)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

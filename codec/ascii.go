package codec

import "strings"

// asciiCodec maps each character to one byte. Characters outside 7-bit
// ASCII are sent as '?', and received bytes above 0x7F render as Placeholder.
type asciiCodec struct{}

func (asciiCodec) Mode() Mode { return ModeASCII }

func (asciiCodec) Description() string { return "7-bit ASCII text" }

func (asciiCodec) Encode(text string) ([]byte, error) {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0x7F {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func (asciiCodec) Decode(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c > 0x7F {
			b.WriteRune(Placeholder)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

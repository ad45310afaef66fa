package terminal

import (
	"strings"
	"unicode/utf8"
)

// textDecoder turns terminal output into text frames. Invalid UTF-8 becomes
// U+FFFD; an incomplete sequence at the end of a read is held back until
// the next read so a character split across reads survives intact.
type textDecoder struct {
	pending []byte
}

func (d *textDecoder) Decode(p []byte) string {
	data := p
	if len(d.pending) > 0 {
		data = append(d.pending, p...)
	}
	cut := incompleteSuffix(data)
	d.pending = append([]byte(nil), data[len(data)-cut:]...)
	return strings.ToValidUTF8(string(data[:len(data)-cut]), "\uFFFD")
}

// Flush returns whatever is still held back, replaced as invalid.
func (d *textDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(d.pending), "\uFFFD")
	d.pending = nil
	return s
}

// incompleteSuffix returns the length of a trailing UTF-8 sequence that
// has a valid start byte but is missing continuation bytes.
func incompleteSuffix(p []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(p); i++ {
		b := p[len(p)-i]
		if b < utf8.RuneSelf {
			return 0
		}
		if utf8.RuneStart(b) {
			if utf8.FullRune(p[len(p)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

package terminal

import (
	"fmt"
	"strconv"
	"strings"
)

// resizePrefix marks an inbound message as a control frame. Any message
// starting with it is never forwarded to the shell, even when malformed.
const resizePrefix = "resize:"

// Resize is a terminal geometry update.
type Resize struct {
	Cols uint16
	Rows uint16
}

func (r Resize) String() string {
	return fmt.Sprintf("%dx%d", r.Cols, r.Rows)
}

// IsControlFrame reports whether msg is addressed to the control-frame
// interpreter rather than the shell.
func IsControlFrame(msg string) bool {
	return strings.HasPrefix(msg, resizePrefix)
}

// ParseResize parses "resize:<cols>:<rows>". Both values must be ASCII
// digits only, positive, and fit a window-size field.
func ParseResize(msg string) (Resize, error) {
	rest, ok := strings.CutPrefix(msg, resizePrefix)
	if !ok {
		return Resize{}, fmt.Errorf("%w: missing %q prefix", ErrControlFrame, resizePrefix)
	}
	colsText, rowsText, ok := strings.Cut(rest, ":")
	if !ok {
		return Resize{}, fmt.Errorf("%w: want resize:<cols>:<rows>, got %q", ErrControlFrame, msg)
	}
	cols, err := parseDimension(colsText)
	if err != nil {
		return Resize{}, fmt.Errorf("%w: cols: %v", ErrControlFrame, err)
	}
	rows, err := parseDimension(rowsText)
	if err != nil {
		return Resize{}, fmt.Errorf("%w: rows: %v", ErrControlFrame, err)
	}
	return Resize{Cols: cols, Rows: rows}, nil
}

func parseDimension(s string) (uint16, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a decimal number", s)
		}
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%q out of range", s)
	}
	if n == 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return uint16(n), nil
}

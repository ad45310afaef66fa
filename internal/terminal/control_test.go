package terminal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResize(t *testing.T) {
	r, err := ParseResize("resize:80:24")
	require.NoError(t, err)
	assert.Equal(t, Resize{Cols: 80, Rows: 24}, r)
	assert.Equal(t, "80x24", r.String())

	r, err = ParseResize("resize:65535:1")
	require.NoError(t, err)
	assert.Equal(t, Resize{Cols: 65535, Rows: 1}, r)
}

func TestParseResizeRejectsMalformedFrames(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"non-numeric cols", "resize:abc:24"},
		{"non-numeric rows", "resize:80:xyz"},
		{"missing rows", "resize:80"},
		{"empty cols", "resize::24"},
		{"empty rows", "resize:80:"},
		{"extra field", "resize:80:24:1"},
		{"leading plus", "resize:+80:24"},
		{"negative", "resize:-80:24"},
		{"zero cols", "resize:0:24"},
		{"zero rows", "resize:80:0"},
		{"overflow", "resize:65536:24"},
		{"whitespace", "resize: 80:24"},
		{"trailing newline", "resize:80:24\n"},
		{"non-ascii digits", "resize:８０:24"},
		{"bare prefix", "resize:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsControlFrame(tt.msg))
			_, err := ParseResize(tt.msg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrControlFrame))
		})
	}
}

func TestIsControlFrame(t *testing.T) {
	assert.True(t, IsControlFrame("resize:80:24"))
	assert.True(t, IsControlFrame("resize:garbage"))

	// Resize-like text without the exact prefix is keystrokes
	assert.False(t, IsControlFrame("resize"))
	assert.False(t, IsControlFrame("Resize:80:24"))
	assert.False(t, IsControlFrame(" resize:80:24"))
	assert.False(t, IsControlFrame("ls\r"))
	assert.False(t, IsControlFrame(""))
}

package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingControls struct{ calls []string }

func (c *recordingControls) Next() { c.calls = append(c.calls, "next") }
func (c *recordingControls) Prev() { c.calls = append(c.calls, "prev") }
func (c *recordingControls) ToggleAutoplay() { c.calls = append(c.calls, "toggle") }

func TestKeymap_Handle(t *testing.T) {
	c := &recordingControls{}
	m := Keymap{Controls: c}

	assert.True(t, m.Handle(KeyLeft, false))
	assert.True(t, m.Handle(KeyRight, false))
	assert.True(t, m.Handle(KeySpace, false))
	assert.False(t, m.Handle(KeyOther, false))
	assert.Equal(t, []string{"prev", "next", "toggle"}, c.calls)
}

func TestKeymap_SuppressedInTextInput(t *testing.T) {
	c := &recordingControls{}
	m := Keymap{Controls: c}

	assert.False(t, m.Handle(KeySpace, true))
	assert.False(t, m.Handle(KeyRight, true))
	assert.Empty(t, c.calls)
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"\x1b[D", KeyLeft},
		{"\x1b[C", KeyRight},
		{"\x1bOC", KeyRight},
		{" ", KeySpace},
		{"q", KeyOther},
		{"\x1b[A", KeyOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseKey([]byte(tt.in)), "%q", tt.in)
	}
}

func TestShareURL(t *testing.T) {
	assert.Equal(t, "http://localhost:3000/tour/abc", ShareURL("http://localhost:3000/", "abc"))
	assert.Equal(t, "https://tours.example/tour/a%2Fb", ShareURL("https://tours.example", "a/b"))
}

package playback

// Key is a navigation key.
type Key int

const (
	KeyOther Key = iota
	KeyLeft
	KeyRight
	KeySpace
)

// Controls is what a Keymap drives.
type Controls interface {
	Next()
	Prev()
	ToggleAutoplay()
}

// Keymap binds Left, Right and Space to Prev, Next and ToggleAutoplay.
type Keymap struct {
	Controls Controls
}

// Handle dispatches k and reports whether it was consumed. Keys typed into a
// text input are never consumed.
func (m Keymap) Handle(k Key, inTextInput bool) bool {
	if inTextInput || m.Controls == nil {
		return false
	}
	switch k {
	case KeyLeft:
		m.Controls.Prev()
	case KeyRight:
		m.Controls.Next()
	case KeySpace:
		m.Controls.ToggleAutoplay()
	default:
		return false
	}
	return true
}

// ParseKey decodes one read from a raw-mode terminal.
func ParseKey(b []byte) Key {
	switch string(b) {
	case "\x1b[D", "\x1bOD", "h":
		return KeyLeft
	case "\x1b[C", "\x1bOC", "l":
		return KeyRight
	case " ":
		return KeySpace
	default:
		return KeyOther
	}
}

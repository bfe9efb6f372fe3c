package panel

import (
	"bytes"
	"fmt"
	"time"
)

// Key identifies one front-panel input. The knob reports exactly three
// gestures: turning left or right and pressing it in.
type Key int

const (
	// KeyNone means no input arrived before the read timeout.
	KeyNone Key = iota
	// KeySelect is the knob pressed in. The device reports it as Shift+F1.
	KeySelect
	// KeyRight is one clockwise detent. Reported as Shift+F2.
	KeyRight
	// KeyLeft is one counterclockwise detent. Reported as Shift+F3.
	KeyLeft
	// KeyUnknown marks a report that matched no known key pattern. The
	// KeyEvent carries the raw bytes for inspection.
	KeyUnknown
)

func (k Key) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeySelect:
		return "select"
	case KeyRight:
		return "right"
	case KeyLeft:
		return "left"
	case KeyUnknown:
		return "unknown"
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// KeyEvent is the outcome of one key read. Raw is set only for KeyUnknown
// and holds the undecoded report.
type KeyEvent struct {
	Key Key
	Raw []byte
}

// Keypad report keycodes, third byte of a key report.
const (
	codeSelect byte = 0x3A
	codeRight  byte = 0x3B
	codeLeft   byte = 0x3C
)

// DecodeKeyEvent interprets one keypad input report. A key press is
// exactly the bytes {0x01, 0x02, keycode}; transports that pad reads to
// the full report size append zeros, which are ignored. Empty input means
// a read that returned no data and decodes to KeyNone. Anything else
// comes back as KeyUnknown with the original bytes attached.
func DecodeKeyEvent(p []byte) KeyEvent {
	if len(p) == 0 {
		return KeyEvent{Key: KeyNone}
	}
	b := bytes.TrimRight(p, "\x00")
	if len(b) == 3 && b[0] == 0x01 && b[1] == 0x02 {
		switch b[2] {
		case codeSelect:
			return KeyEvent{Key: KeySelect}
		case codeRight:
			return KeyEvent{Key: KeyRight}
		case codeLeft:
			return KeyEvent{Key: KeyLeft}
		}
	}
	raw := make([]byte, len(p))
	copy(raw, p)
	return KeyEvent{Key: KeyUnknown, Raw: raw}
}

// keyTone returns the feedback tone for a recognized key, matching the
// tones the appliance firmware uses. ok is false for keys without a tone.
func keyTone(k Key) (freqHz int, d time.Duration, ok bool) {
	switch k {
	case KeySelect:
		return 1000, 20 * time.Millisecond, true
	case KeyRight, KeyLeft:
		return 500, 10 * time.Millisecond, true
	}
	return 0, 0, false
}

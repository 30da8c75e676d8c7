// Package credential turns key events into credential bytes.
package credential

import (
	"github.com/MatthiasKunnen/keylock/pkg/securebuf"
)

// Key is the logical identity of a key press.
type Key int

const (
	// KeyCharacter is any key that is not a submission boundary. Its bytes, if any, are part of
	// the credential.
	KeyCharacter Key = iota
	// KeyReturn submits the credential or starts recording.
	KeyReturn
)

func (k Key) String() string {
	switch k {
	case KeyReturn:
		return "return"
	default:
		return "character"
	}
}

// Event is a single key press after keyboard layout and composition have been resolved.
// Bytes is scratch memory owned by whoever handles the event; it is wiped after handling.
type Event struct {
	Key   Key
	Bytes []byte
}

// Submit reports whether the event is a submission boundary.
func (e Event) Submit() bool {
	return e.Key == KeyReturn
}

// Recorder reports whether key presses are currently being recorded.
type Recorder interface {
	Recording() bool
}

// Assembler appends the bytes of character events to a credential buffer.
// It holds no state of its own.
type Assembler struct{}

// Feed appends the bytes of ev to buf when gate is recording. Nothing is stored otherwise.
// [securebuf.ErrOverflow] is returned unmodified.
func (Assembler) Feed(gate Recorder, ev Event, buf *securebuf.Buffer) error {
	if !gate.Recording() || ev.Submit() {
		return nil
	}

	return buf.Append(ev.Bytes)
}

package tty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/MatthiasKunnen/keylock/pkg/credential"
	"github.com/MatthiasKunnen/keylock/pkg/securebuf"
)

// Decode splits raw terminal input into key events.
//
// Carriage return and line feed are Return. A CSI or SS3 escape sequence, such as an arrow
// key, and every other control byte are a character without bytes. Printable input is split
// into one event per UTF-8 encoded rune; invalid bytes are passed through one by one.
// The returned events hold copies of the input bytes.
func Decode(chunk []byte) []credential.Event {
	events := make([]credential.Event, 0, len(chunk))

	for len(chunk) > 0 {
		c := chunk[0]
		switch {
		case c == '\r' || c == '\n':
			events = append(events, credential.Event{Key: credential.KeyReturn})
			chunk = chunk[1:]
		case c == 0x1b:
			events = append(events, credential.Event{Key: credential.KeyCharacter})
			chunk = chunk[escapeLen(chunk):]
		case c < 0x20 || c == 0x7f:
			events = append(events, credential.Event{Key: credential.KeyCharacter})
			chunk = chunk[1:]
		default:
			_, size := utf8.DecodeRune(chunk)
			b := make([]byte, size)
			copy(b, chunk[:size])
			events = append(events, credential.Event{Key: credential.KeyCharacter, Bytes: b})
			chunk = chunk[size:]
		}
	}

	return events
}

// escapeLen returns the length of the escape sequence at the start of chunk.
// Anything that is not a well-formed CSI or SS3 key sequence is a lone Esc, so keys typed
// after Esc in the same read are kept.
func escapeLen(chunk []byte) int {
	if len(chunk) < 3 {
		return 1
	}

	switch chunk[1] {
	case '[':
		// Parameter bytes, then intermediate bytes, then one final byte.
		i := 2
		for i < len(chunk) && chunk[i] >= 0x30 && chunk[i] <= 0x3f {
			i++
		}
		for i < len(chunk) && chunk[i] >= 0x20 && chunk[i] <= 0x2f {
			i++
		}
		if i < len(chunk) && isCSIFinal(chunk[i]) {
			return i + 1
		}
	case 'O':
		switch chunk[2] {
		case 'A', 'B', 'C', 'D', 'H', 'F', 'P', 'Q', 'R', 'S':
			return 3
		}
	}

	return 1
}

// isCSIFinal reports whether c ends a key sequence: cursor keys, Home/End, F1-F4 and the
// "~" of editing and function keys.
func isCSIFinal(c byte) bool {
	switch c {
	case 'A', 'B', 'C', 'D', 'E', 'F', 'H', 'P', 'Q', 'R', 'S', 'Z', '~':
		return true
	}
	return false
}

// Reader reads key events from a terminal.
type Reader struct {
	r   io.Reader
	buf [64]byte
}

// NewReader creates a Reader for r, usually a raw-mode terminal.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Run reads input until ctx is done or reading fails, sending events to out in order.
// The read buffer is wiped after every chunk.
func (r *Reader) Run(ctx context.Context, out chan<- credential.Event) error {
	for {
		n, err := r.r.Read(r.buf[:])
		events := Decode(r.buf[:n])
		securebuf.Wipe(r.buf[:n])

		for i, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				for _, rest := range events[i:] {
					securebuf.Wipe(rest.Bytes)
				}
				return ctx.Err()
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return fmt.Errorf("failed to read terminal input: %w", err)
		}
	}
}

package tty

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

const (
	hideCursor = "\x1b[?25l"
	showCursor = "\x1b[?25h"
	// resetBackground restores the terminal's default background color.
	resetBackground = "\x1b]111\x07"
	clearScreen     = "\x1b[2J\x1b[H"
)

// Terminal is a terminal in raw mode.
type Terminal struct {
	in    *os.File
	out   *os.File
	state *term.State
}

// Open puts in into raw mode and hides the cursor on out.
// Close must be called to restore the terminal.
func Open(in, out *os.File) (*Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", in.Name())
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	if _, err := out.WriteString(hideCursor); err != nil {
		return nil, errors.Join(
			fmt.Errorf("failed to hide cursor: %w", err),
			term.Restore(fd, state),
		)
	}

	return &Terminal{in: in, out: out, state: state}, nil
}

// Input returns the file key presses are read from.
func (t *Terminal) Input() *os.File {
	return t.in
}

// Output returns the file the lock surface is drawn on.
func (t *Terminal) Output() *os.File {
	return t.out
}

// Close restores the terminal's colors, cursor and mode.
func (t *Terminal) Close() error {
	_, err := t.out.WriteString(resetBackground + clearScreen + showCursor)
	return errors.Join(err, term.Restore(int(t.in.Fd()), t.state))
}

package tty

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MatthiasKunnen/keylock/pkg/lock"
)

// Colors are the background colors of the two visible phases, as "#rgb" or "#rrggbb".
type Colors struct {
	Ignore string
	Store  string
}

// Renderer paints the terminal background according to the lock phase.
type Renderer struct {
	w      io.Writer
	colors Colors
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing escape sequences to w.
func NewRenderer(w io.Writer, colors Colors, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Renderer{w: w, colors: colors, logger: logger}
}

// RenderPhase sets the background to the store color while recording and to the ignore color
// otherwise, then clears the screen.
func (r *Renderer) RenderPhase(p lock.Phase) {
	color := r.colors.Ignore
	if p == lock.PhaseRecording {
		color = r.colors.Store
	}

	// OSC 11 sets the default background color.
	_, err := fmt.Fprintf(r.w, "\x1b]11;%s\x07%s", color, clearScreen)
	if err != nil {
		r.logger.Error("Failed to render lock phase", "phase", p.String(), "error", err)
		return
	}

	r.logger.Debug("Lock color set", "phase", p.String(), "color", color)
}

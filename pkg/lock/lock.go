package lock

import (
	"github.com/MatthiasKunnen/keylock/pkg/auth"
)

// Phase is the current state of a Machine.
type Phase int

const (
	// PhaseIdle ignores key presses other than Return. The indicator shows the "ignore" visual.
	PhaseIdle Phase = iota
	// PhaseRecording stores key presses. The indicator shows the "store" visual.
	PhaseRecording
	// PhaseVerifying lasts for the duration of a single verification attempt.
	PhaseVerifying
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhaseVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// Renderer shows the phase to the user.
// RenderPhase is called synchronously before further input is handled; it is only ever called
// with PhaseIdle or PhaseRecording.
type Renderer interface {
	RenderPhase(p Phase)
}

// Authenticator checks a credential. The credential slice must not be retained.
type Authenticator interface {
	Verify(session auth.Session, credential []byte) auth.Outcome
}

// Terminator ends the lock. Terminate is called exactly once, after a successful unlock.
type Terminator interface {
	Terminate()
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func()

func (f TerminatorFunc) Terminate() {
	f()
}

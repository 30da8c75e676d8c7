package lock

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MatthiasKunnen/keylock/pkg/audit"
	"github.com/MatthiasKunnen/keylock/pkg/auth"
	"github.com/MatthiasKunnen/keylock/pkg/credential"
	"github.com/MatthiasKunnen/keylock/pkg/securebuf"
)

// Config holds the collaborators of a Machine.
type Config struct {
	Session auth.Session

	// Capacity is the maximum credential length in bytes.
	// Defaults to securebuf.DefaultCapacity.
	Capacity int

	Authenticator Authenticator
	Renderer      Renderer
	Audit         audit.Sink
	Terminator    Terminator

	// Logger is optional.
	Logger *slog.Logger
}

// Machine is the lock state machine.
type Machine struct {
	session    auth.Session
	phase      Phase
	buf        *securebuf.Buffer
	assembler  credential.Assembler
	auth       Authenticator
	renderer   Renderer
	audit      audit.Sink
	terminator Terminator
	logger     *slog.Logger
	terminated bool
}

// New creates a Machine in PhaseIdle and allocates its credential buffer.
func New(cfg Config) (*Machine, error) {
	switch {
	case cfg.Authenticator == nil:
		return nil, errors.New("lock: Authenticator is required")
	case cfg.Renderer == nil:
		return nil, errors.New("lock: Renderer is required")
	case cfg.Audit == nil:
		return nil, errors.New("lock: Audit is required")
	case cfg.Terminator == nil:
		return nil, errors.New("lock: Terminator is required")
	}

	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = securebuf.DefaultCapacity
	}
	buf, err := securebuf.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Machine{
		session:    cfg.Session,
		phase:      PhaseIdle,
		buf:        buf,
		auth:       cfg.Authenticator,
		renderer:   cfg.Renderer,
		audit:      cfg.Audit,
		terminator: cfg.Terminator,
		logger:     logger.With("user", cfg.Session.User),
	}, nil
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Recording reports whether key presses are being stored.
func (m *Machine) Recording() bool {
	return m.phase == PhaseRecording
}

// Terminated reports whether the lock has been released.
func (m *Machine) Terminated() bool {
	return m.terminated
}

// Lock announces the lock: the indicator is set to idle and the lock is audited.
func (m *Machine) Lock() {
	if m.terminated {
		return
	}

	m.renderer.RenderPhase(PhaseIdle)
	m.audit.Locked(m.session.User)
	m.logger.Debug("Screen locked")
}

// HandleKey processes one key event. ev.Bytes is wiped before HandleKey returns.
func (m *Machine) HandleKey(ev credential.Event) {
	defer securebuf.Wipe(ev.Bytes)

	if m.terminated {
		return
	}

	switch m.phase {
	case PhaseIdle:
		if ev.Submit() {
			m.startRecording()
		}
	case PhaseRecording:
		if ev.Submit() {
			m.submit()
			return
		}

		if err := m.assembler.Feed(m, ev, m.buf); err != nil {
			// Too long, pretend the attempt failed and start over.
			m.fail(audit.ReasonOverflow)
		}
	}
}

// Abandon discards a credential that is being recorded without attempting it.
// It is a no-op unless the machine is recording.
func (m *Machine) Abandon() {
	if m.terminated || m.phase != PhaseRecording {
		return
	}

	m.buf.Reset()
	m.setPhase(PhaseIdle)
	m.logger.Debug("Recording abandoned")
}

// Close releases the credential buffer. The Machine must not be used afterward.
func (m *Machine) Close() {
	m.buf.Destroy()
}

func (m *Machine) startRecording() {
	m.buf.Reset()
	m.setPhase(PhaseRecording)
}

func (m *Machine) submit() {
	if m.buf.Len() == 0 {
		m.fail(audit.ReasonEmpty)
		return
	}

	// Nothing is recorded from here on; update the indicator before the verifier blocks.
	m.phase = PhaseVerifying
	m.renderer.RenderPhase(PhaseIdle)

	outcome := m.verify()
	if outcome != auth.OutcomeUnlocked {
		m.audit.AttemptFailed(m.session.User, failureReason(outcome))
		m.logger.Debug("Failed to unlock screen", "outcome", outcome.String())
		return
	}

	m.audit.Unlocked(m.session.User)
	m.logger.Debug("Screen unlocked")
	m.terminated = true
	m.terminator.Terminate()
}

// verify runs the attempt. The buffer is wiped even if the verifier panics.
func (m *Machine) verify() (outcome auth.Outcome) {
	defer func() {
		m.buf.Reset()
		m.phase = PhaseIdle
	}()

	m.buf.Borrow(func(credential []byte) {
		outcome = m.auth.Verify(m.session, credential)
	})

	return outcome
}

func (m *Machine) fail(reason audit.Reason) {
	m.buf.Reset()
	m.setPhase(PhaseIdle)
	m.audit.AttemptFailed(m.session.User, reason)
	m.logger.Debug("Failed to unlock screen", "reason", string(reason))
}

func (m *Machine) setPhase(p Phase) {
	m.phase = p
	m.renderer.RenderPhase(p)
}

func failureReason(o auth.Outcome) audit.Reason {
	switch o {
	case auth.OutcomeConversationError:
		return audit.ReasonConversationError
	case auth.OutcomeLifecycleError:
		return audit.ReasonLifecycleError
	default:
		return audit.ReasonRejected
	}
}

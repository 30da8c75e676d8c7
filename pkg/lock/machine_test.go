package lock

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatthiasKunnen/keylock/pkg/audit"
	"github.com/MatthiasKunnen/keylock/pkg/auth"
	"github.com/MatthiasKunnen/keylock/pkg/credential"
)

var testSession = auth.Session{User: "alice", Service: "keylock"}

type phaseRecorder struct {
	phases []Phase
}

func (r *phaseRecorder) RenderPhase(p Phase) {
	r.phases = append(r.phases, p)
}

type auditRecorder struct {
	locked   []string
	unlocked []string
	failed   []audit.Reason
}

func (a *auditRecorder) Locked(user string)   { a.locked = append(a.locked, user) }
func (a *auditRecorder) Unlocked(user string) { a.unlocked = append(a.unlocked, user) }
func (a *auditRecorder) AttemptFailed(user string, reason audit.Reason) {
	a.failed = append(a.failed, reason)
}

// scriptedAuth accepts one credential and records every attempt.
type scriptedAuth struct {
	accept  string
	outcome auth.Outcome // returned for anything but accept
	calls   []string
	// phaseDuringCall is the machine phase observed while verifying.
	machine         *Machine
	phaseDuringCall []Phase
}

func (a *scriptedAuth) Verify(session auth.Session, credential []byte) auth.Outcome {
	a.calls = append(a.calls, string(credential))
	if a.machine != nil {
		a.phaseDuringCall = append(a.phaseDuringCall, a.machine.Phase())
	}
	if string(credential) == a.accept {
		return auth.OutcomeUnlocked
	}

	return a.outcome
}

type harness struct {
	m          *Machine
	auth       *scriptedAuth
	renderer   *phaseRecorder
	audit      *auditRecorder
	terminated int
}

func newHarness(t *testing.T, capacity int, a *scriptedAuth) *harness {
	t.Helper()

	h := &harness{
		auth:     a,
		renderer: &phaseRecorder{},
		audit:    &auditRecorder{},
	}
	m, err := New(Config{
		Session:       testSession,
		Capacity:      capacity,
		Authenticator: a,
		Renderer:      h.renderer,
		Audit:         h.audit,
		Terminator:    TerminatorFunc(func() { h.terminated++ }),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	a.machine = m
	h.m = m

	return h
}

func (h *harness) submit() {
	h.m.HandleKey(credential.Event{Key: credential.KeyReturn, Bytes: []byte("\r")})
}

func (h *harness) typeString(s string) {
	for _, r := range s {
		h.m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: []byte(string(r))})
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{
		Authenticator: &scriptedAuth{},
		Renderer:      &phaseRecorder{},
		Audit:         &auditRecorder{},
		Terminator:    TerminatorFunc(func() {}),
		Capacity:      -1,
	})
	assert.Error(t, err)
}

func TestLockAnnounces(t *testing.T) {
	h := newHarness(t, 0, &scriptedAuth{})

	h.m.Lock()

	assert.Equal(t, []Phase{PhaseIdle}, h.renderer.phases)
	assert.Equal(t, []string{"alice"}, h.audit.locked)
	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.Equal(t, 1024, h.m.buf.Cap())
}

func TestCharactersIgnoredWhileIdle(t *testing.T) {
	h := newHarness(t, 16, &scriptedAuth{})

	h.typeString("abc")

	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.Equal(t, 0, h.m.buf.Len())
	assert.True(t, h.m.buf.Zeroed())
	assert.Empty(t, h.renderer.phases)
}

func TestSuccessfulUnlock(t *testing.T) {
	a := &scriptedAuth{accept: "abc", outcome: auth.OutcomeRejected}
	h := newHarness(t, 16, a)

	h.submit()
	assert.Equal(t, PhaseRecording, h.m.Phase())
	h.typeString("abc")
	assert.Equal(t, 3, h.m.buf.Len())
	h.submit()

	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.Equal(t, []string{"abc"}, a.calls)
	assert.Equal(t, []Phase{PhaseVerifying}, a.phaseDuringCall)
	assert.Equal(t, 1, h.terminated)
	assert.True(t, h.m.Terminated())
	assert.Equal(t, []string{"alice"}, h.audit.unlocked)
	assert.Empty(t, h.audit.failed)
	assert.Equal(t, []Phase{PhaseRecording, PhaseIdle}, h.renderer.phases)
	assert.True(t, h.m.buf.Zeroed())
}

func TestEventsAfterUnlockAreIgnored(t *testing.T) {
	a := &scriptedAuth{accept: "abc"}
	h := newHarness(t, 16, a)

	h.submit()
	h.typeString("abc")
	h.submit()
	h.submit()
	h.typeString("abc")
	h.submit()
	h.m.Lock()
	h.m.Abandon()

	assert.Equal(t, 1, h.terminated)
	assert.Len(t, a.calls, 1)
	assert.Len(t, h.audit.unlocked, 1)
	assert.Empty(t, h.audit.locked)
}

func TestRejectedAttempt(t *testing.T) {
	a := &scriptedAuth{accept: "abc", outcome: auth.OutcomeRejected}
	h := newHarness(t, 16, a)

	h.submit()
	h.typeString("x")
	h.submit()

	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.Equal(t, []string{"x"}, a.calls)
	assert.Zero(t, h.terminated)
	assert.Equal(t, []audit.Reason{audit.ReasonRejected}, h.audit.failed)
	assert.True(t, h.m.buf.Zeroed())
	assert.Equal(t, 0, h.m.buf.Len())
}

func TestFailureReasons(t *testing.T) {
	tests := []struct {
		outcome auth.Outcome
		want    audit.Reason
	}{
		{auth.OutcomeRejected, audit.ReasonRejected},
		{auth.OutcomeConversationError, audit.ReasonConversationError},
		{auth.OutcomeLifecycleError, audit.ReasonLifecycleError},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			h := newHarness(t, 16, &scriptedAuth{outcome: tt.outcome})

			h.submit()
			h.typeString("pw")
			h.submit()

			assert.Equal(t, []audit.Reason{tt.want}, h.audit.failed)
			assert.Zero(t, h.terminated)
			assert.Equal(t, PhaseIdle, h.m.Phase())
			assert.True(t, h.m.buf.Zeroed())
		})
	}
}

func TestEmptySubmissionSkipsVerifier(t *testing.T) {
	a := &scriptedAuth{accept: ""}
	h := newHarness(t, 16, a)

	h.submit()
	h.submit()

	assert.Empty(t, a.calls)
	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.Equal(t, []audit.Reason{audit.ReasonEmpty}, h.audit.failed)
	assert.Zero(t, h.terminated)
	assert.True(t, h.m.buf.Zeroed())
	assert.Equal(t, []Phase{PhaseRecording, PhaseIdle}, h.renderer.phases)
}

func TestEmptyCharactersDoNotCount(t *testing.T) {
	a := &scriptedAuth{}
	h := newHarness(t, 16, a)

	h.submit()
	h.m.HandleKey(credential.Event{Key: credential.KeyCharacter})
	h.submit()

	assert.Empty(t, a.calls)
	assert.Equal(t, []audit.Reason{audit.ReasonEmpty}, h.audit.failed)
}

func TestOverflowForcesFailure(t *testing.T) {
	a := &scriptedAuth{}
	h := newHarness(t, 1024, a)

	h.submit()
	for i := 0; i < 1024; i++ {
		h.m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: []byte{'a'}})
		require.Equal(t, PhaseRecording, h.m.Phase())
	}
	assert.Equal(t, 1024, h.m.buf.Len())

	h.m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: []byte{'Z'}})

	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.Equal(t, 0, h.m.buf.Len())
	assert.True(t, h.m.buf.Zeroed())
	assert.Empty(t, a.calls)
	assert.Equal(t, []audit.Reason{audit.ReasonOverflow}, h.audit.failed)
	assert.Equal(t, []Phase{PhaseRecording, PhaseIdle}, h.renderer.phases)
}

func TestOverflowingMultibyteCharacterIsNotStored(t *testing.T) {
	h := newHarness(t, 4, &scriptedAuth{})

	h.submit()
	h.typeString("abc")
	h.m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: []byte("é")})

	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.False(t, bytes.Contains(h.m.buf.mem.Bytes(), []byte("é")[:1]))
	assert.True(t, h.m.buf.Zeroed())
}

func TestNoCarryOverBetweenCycles(t *testing.T) {
	a := &scriptedAuth{outcome: auth.OutcomeRejected}
	h := newHarness(t, 16, a)

	h.submit()
	h.typeString("first")
	h.submit()
	h.typeString("ignored")
	h.submit()
	h.typeString("2nd")
	h.submit()

	assert.Equal(t, []string{"first", "2nd"}, a.calls)
}

func TestRecordingRestartsAfterAbandon(t *testing.T) {
	a := &scriptedAuth{outcome: auth.OutcomeRejected}
	h := newHarness(t, 16, a)

	h.m.Abandon()
	assert.Empty(t, h.renderer.phases)

	h.submit()
	h.typeString("half")
	h.m.Abandon()

	assert.Equal(t, PhaseIdle, h.m.Phase())
	assert.True(t, h.m.buf.Zeroed())
	assert.Empty(t, h.audit.failed)
	assert.Empty(t, a.calls)
	assert.Equal(t, []Phase{PhaseRecording, PhaseIdle}, h.renderer.phases)
}

func TestHandleKeyWipesEventBytes(t *testing.T) {
	h := newHarness(t, 16, &scriptedAuth{})
	h.submit()

	b := []byte("k")
	h.m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: b})

	assert.Equal(t, []byte{0}, b)
}

type panickingAuth struct{}

func (panickingAuth) Verify(auth.Session, []byte) auth.Outcome {
	panic("verifier crashed")
}

func TestBufferWipedWhenVerifierPanics(t *testing.T) {
	m, err := New(Config{
		Session:       testSession,
		Capacity:      16,
		Authenticator: panickingAuth{},
		Renderer:      &phaseRecorder{},
		Audit:         &auditRecorder{},
		Terminator:    TerminatorFunc(func() {}),
	})
	require.NoError(t, err)
	defer m.Close()

	m.HandleKey(credential.Event{Key: credential.KeyReturn})
	m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: []byte("pw")})

	assert.Panics(t, func() {
		m.HandleKey(credential.Event{Key: credential.KeyReturn})
	})
	assert.True(t, m.buf.Zeroed())
	assert.Equal(t, PhaseIdle, m.Phase())
	assert.False(t, m.Terminated())
}

func TestCharacterSequencesKeepPhase(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, start := range []Phase{PhaseIdle, PhaseRecording} {
		t.Run(start.String(), func(t *testing.T) {
			h := newHarness(t, 1024, &scriptedAuth{})

			for i := 0; i < 50; i++ {
				if start == PhaseRecording {
					h.m.Abandon()
					h.submit()
				}
				phasesBefore := len(h.renderer.phases)

				total := 0
				for n := rng.Intn(64); n > 0; n-- {
					b := make([]byte, rng.Intn(4))
					rng.Read(b)
					if start == PhaseRecording {
						total += len(b)
					}
					h.m.HandleKey(credential.Event{Key: credential.KeyCharacter, Bytes: b})
				}

				require.Equal(t, start, h.m.Phase())
				require.Equal(t, total, h.m.buf.Len())
				require.Len(t, h.renderer.phases, phasesBefore)
			}
		})
	}
}

package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSession = Session{User: "alice", Service: "keylock"}

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		verifier   *fakeVerifier
		credential string
		want       Outcome
		wantEnds   int
	}{
		{
			name:       "accepted",
			verifier:   &fakeVerifier{accept: "abc"},
			credential: "abc",
			want:       OutcomeUnlocked,
			wantEnds:   1,
		},
		{
			name:       "rejected",
			verifier:   &fakeVerifier{accept: "abc"},
			credential: "x",
			want:       OutcomeRejected,
			wantEnds:   1,
		},
		{
			name: "echo prompt",
			verifier: &fakeVerifier{accept: "abc", script: []Message{
				{Kind: EchoPrompt, Text: "Login: "},
			}},
			credential: "abc",
			want:       OutcomeConversationError,
			wantEnds:   1,
		},
		{
			name: "info notice before prompt",
			verifier: &fakeVerifier{accept: "abc", script: []Message{
				{Kind: InfoNotice, Text: "Touch your key"},
				{Kind: SecretPrompt, Text: "Password: "},
			}},
			credential: "abc",
			want:       OutcomeConversationError,
			wantEnds:   1,
		},
		{
			name: "second secret prompt",
			verifier: &fakeVerifier{accept: "abc", script: []Message{
				{Kind: SecretPrompt, Text: "Password: "},
				{Kind: SecretPrompt, Text: "OTP: "},
			}},
			credential: "abc",
			want:       OutcomeConversationError,
			wantEnds:   1,
		},
		{
			name: "success despite conversation error",
			verifier: &fakeVerifier{ignoreConvErrors: true, script: []Message{
				{Kind: ErrorNotice, Text: "oops"},
			}},
			credential: "abc",
			want:       OutcomeConversationError,
			wantEnds:   1,
		},
		{
			name:       "start failure",
			verifier:   &fakeVerifier{accept: "abc", startErr: errors.New("no such service")},
			credential: "abc",
			want:       OutcomeLifecycleError,
			wantEnds:   0,
		},
		{
			name:       "finalize failure after success",
			verifier:   &fakeVerifier{accept: "abc", endErr: errors.New("pam_end failed")},
			credential: "abc",
			want:       OutcomeLifecycleError,
			wantEnds:   1,
		},
		{
			name:       "finalize failure after rejection",
			verifier:   &fakeVerifier{accept: "abc", endErr: errors.New("pam_end failed")},
			credential: "abd",
			want:       OutcomeRejected,
			wantEnds:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(tt.verifier, nil)

			got := g.Verify(testSession, []byte(tt.credential))

			assert.Equal(t, tt.want, got, "got %s", got)
			assert.Equal(t, 1, tt.verifier.starts)
			assert.Equal(t, tt.wantEnds, tt.verifier.ends)
		})
	}
}

func TestVerifyClassifiesWrappedConversationError(t *testing.T) {
	v := verifierFunc(func(conv Conversation) error {
		return errors.Join(errors.New("pam"), ErrConversation)
	})

	assert.Equal(t, OutcomeConversationError, NewGateway(v, nil).Verify(testSession, []byte("pw")))
}

type verifierFunc func(conv Conversation) error

func (f verifierFunc) Start(service, user string, conv Conversation) (Transaction, error) {
	return txFunc{conv: conv, f: f}, nil
}

type txFunc struct {
	conv Conversation
	f    verifierFunc
}

func (t txFunc) Authenticate() error { return t.f(t.conv) }
func (t txFunc) End() error          { return nil }

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "unlocked", OutcomeUnlocked.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "conversation error", OutcomeConversationError.String())
	assert.Equal(t, "lifecycle error", OutcomeLifecycleError.String())
}

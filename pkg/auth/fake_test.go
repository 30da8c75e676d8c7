package auth

import (
	"bytes"
	"errors"
	"fmt"
)

// fakeVerifier accepts a single credential and replays a fixed message script.
type fakeVerifier struct {
	accept   string
	script   []Message
	startErr error
	endErr   error
	// ignoreConvErrors makes Authenticate succeed even when the conversation failed.
	ignoreConvErrors bool

	starts int
	ends   int
}

func (v *fakeVerifier) Start(service, user string, conv Conversation) (Transaction, error) {
	v.starts++
	if v.startErr != nil {
		return nil, v.startErr
	}

	return &fakeTransaction{verifier: v, conv: conv}, nil
}

type fakeTransaction struct {
	verifier *fakeVerifier
	conv     Conversation
}

func (t *fakeTransaction) Authenticate() error {
	script := t.verifier.script
	if script == nil {
		script = []Message{{Kind: SecretPrompt, Text: "Password: "}}
	}

	var answer []byte
	for _, msg := range script {
		resp, err := t.conv.Respond(msg)
		if err != nil {
			if t.verifier.ignoreConvErrors {
				continue
			}
			return errors.New("fake: conversation failure")
		}
		if msg.Kind == SecretPrompt {
			answer = bytes.Clone(resp)
		}
	}

	if t.verifier.ignoreConvErrors || string(answer) == t.verifier.accept {
		return nil
	}

	return fmt.Errorf("%w: authentication failure", ErrRejected)
}

func (t *fakeTransaction) End() error {
	t.verifier.ends++
	return t.verifier.endErr
}

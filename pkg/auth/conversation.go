package auth

import (
	"fmt"
)

// conversation answers the first secret prompt with the credential and fails on anything else.
// Once it fails or is closed the credential reference is dropped.
type conversation struct {
	credential []byte
	answered   bool
	err        error
}

func newConversation(credential []byte) *conversation {
	return &conversation{credential: credential}
}

func (c *conversation) Respond(msg Message) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.credential == nil {
		return nil, fmt.Errorf("%w: %s after the exchange closed", ErrConversation, msg.Kind)
	}

	switch msg.Kind {
	case SecretPrompt:
		if c.answered {
			return nil, c.fail(fmt.Errorf("%w: more than one secret prompt", ErrConversation))
		}
		c.answered = true
		return c.credential, nil
	default:
		return nil, c.fail(fmt.Errorf("%w: unsupported %s", ErrConversation, msg.Kind))
	}
}

// Err returns the protocol failure recorded during the exchange, if any.
func (c *conversation) Err() error {
	return c.err
}

func (c *conversation) fail(err error) error {
	c.err = err
	c.credential = nil
	return err
}

func (c *conversation) close() {
	c.credential = nil
}

//go:build cgo

package pamauth

import (
	"errors"
	"fmt"

	"github.com/msteinert/pam/v2"

	"github.com/MatthiasKunnen/keylock/pkg/auth"
)

var styles = map[pam.Style]auth.MessageKind{
	pam.PromptEchoOff: auth.SecretPrompt,
	pam.PromptEchoOn:  auth.EchoPrompt,
	pam.ErrorMsg:      auth.ErrorNotice,
	pam.TextInfo:      auth.InfoNotice,
}

// Verifier starts PAM transactions.
type Verifier struct {
	confDir string
}

// New returns a Verifier that uses the system PAM configuration.
func New() *Verifier {
	return &Verifier{}
}

// NewWithConfDir returns a Verifier that reads PAM service files from confDir instead of
// /etc/pam.d.
func NewWithConfDir(confDir string) *Verifier {
	return &Verifier{confDir: confDir}
}

func (v *Verifier) Start(service, user string, conv auth.Conversation) (auth.Transaction, error) {
	handler := pam.ConversationFunc(func(style pam.Style, msg string) (string, error) {
		kind, ok := styles[style]
		if !ok {
			return "", fmt.Errorf("%w: unknown message style %d", auth.ErrConversation, style)
		}

		resp, err := conv.Respond(auth.Message{Kind: kind, Text: msg})
		if err != nil {
			return "", err
		}

		// The Go string copy cannot be wiped; libpam frees its own C copy.
		return string(resp), nil
	})

	var (
		tx  *pam.Transaction
		err error
	)
	if v.confDir != "" {
		tx, err = pam.StartConfDir(service, user, handler, v.confDir)
	} else {
		tx, err = pam.Start(service, user, handler)
	}
	if err != nil {
		return nil, fmt.Errorf("pam start for service %q: %w", service, err)
	}

	return &transaction{tx: tx}, nil
}

type transaction struct {
	tx *pam.Transaction
}

func (t *transaction) Authenticate() error {
	err := t.tx.Authenticate(0)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pam.ErrConv), errors.Is(err, pam.ErrBuf):
		return fmt.Errorf("%w: %v", auth.ErrConversation, err)
	default:
		return fmt.Errorf("%w: %v", auth.ErrRejected, err)
	}
}

func (t *transaction) End() error {
	if err := t.tx.End(); err != nil {
		return fmt.Errorf("pam end: %w", err)
	}

	return nil
}

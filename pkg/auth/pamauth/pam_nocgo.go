//go:build !cgo

package pamauth

import (
	"github.com/MatthiasKunnen/keylock/pkg/auth"
)

// Verifier is unavailable without cgo.
type Verifier struct{}

func New() *Verifier {
	return &Verifier{}
}

func NewWithConfDir(string) *Verifier {
	return &Verifier{}
}

func (v *Verifier) Start(string, string, auth.Conversation) (auth.Transaction, error) {
	return nil, ErrUnsupported
}

package auth

import (
	"errors"
)

var (
	// ErrRejected is wrapped by verifiers when the credential was declined.
	ErrRejected = errors.New("auth: credential rejected")
	// ErrConversation is wrapped when the exchange with the verifier broke its protocol.
	ErrConversation = errors.New("auth: conversation error")
)

// Session identifies who is being authenticated and against which service.
type Session struct {
	User    string
	Service string
}

// MessageKind is the kind of a message sent by a verifier during a conversation.
type MessageKind int

const (
	SecretPrompt MessageKind = iota + 1
	EchoPrompt
	ErrorNotice
	InfoNotice
)

func (k MessageKind) String() string {
	switch k {
	case SecretPrompt:
		return "secret prompt"
	case EchoPrompt:
		return "echo prompt"
	case ErrorNotice:
		return "error notice"
	case InfoNotice:
		return "info notice"
	default:
		return "unknown message"
	}
}

// Message is a single verifier message. Text is the prompt or notice shown by the verifier.
type Message struct {
	Kind MessageKind
	Text string
}

// Conversation answers verifier messages.
//
// The slice returned for a prompt is only valid until Respond is called again or the
// transaction ends. Implementations of Transaction copy it if they need it longer.
type Conversation interface {
	Respond(msg Message) ([]byte, error)
}

// Verifier starts authentication transactions.
type Verifier interface {
	// Start initializes a transaction for user on service.
	// conv is used for all messages of the transaction.
	Start(service, user string, conv Conversation) (Transaction, error)
}

// Transaction is a single authentication attempt.
type Transaction interface {
	// Authenticate runs the check. Errors wrap ErrRejected or ErrConversation when the verifier
	// can tell them apart.
	Authenticate() error

	// End finalizes the transaction. It must be called exactly once.
	End() error
}

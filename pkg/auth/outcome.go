package auth

// Outcome is the result of one verification attempt.
type Outcome int

const (
	// OutcomeRejected means the verifier ran to completion and declined the credential.
	OutcomeRejected Outcome = iota
	// OutcomeUnlocked means the credential was accepted and the transaction ended cleanly.
	OutcomeUnlocked
	// OutcomeConversationError means the exchange violated the supported protocol.
	OutcomeConversationError
	// OutcomeLifecycleError means the transaction could not be started or finalized.
	OutcomeLifecycleError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnlocked:
		return "unlocked"
	case OutcomeRejected:
		return "rejected"
	case OutcomeConversationError:
		return "conversation error"
	case OutcomeLifecycleError:
		return "lifecycle error"
	default:
		return "unknown"
	}
}

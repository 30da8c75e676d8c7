package auth

import (
	"errors"
	"log/slog"
)

// Gateway performs one verification attempt per call to Verify.
type Gateway struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewGateway creates a Gateway using verifier. A nil logger discards log output.
func NewGateway(verifier Verifier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gateway{
		verifier: verifier,
		logger:   logger,
	}
}

// Verify checks credential for session.
// credential is only referenced until Verify returns.
func (g *Gateway) Verify(session Session, credential []byte) Outcome {
	conv := newConversation(credential)
	defer conv.close()

	log := g.logger.With("user", session.User, "service", session.Service)

	tx, err := g.verifier.Start(session.Service, session.User, conv)
	if err != nil {
		log.Error("Verifier initialization failed", "error", err)
		return OutcomeLifecycleError
	}

	if err := tx.Authenticate(); err != nil {
		outcome := OutcomeRejected
		if conv.Err() != nil || errors.Is(err, ErrConversation) {
			outcome = OutcomeConversationError
		}

		if endErr := tx.End(); endErr != nil {
			log.Warn("Verifier finalize failed after failed attempt", "error", endErr)
		}

		log.Info("Authentication failed", "outcome", outcome.String(), "error", err)
		return outcome
	}

	if err := conv.Err(); err != nil {
		if endErr := tx.End(); endErr != nil {
			log.Warn("Verifier finalize failed after failed attempt", "error", endErr)
		}

		log.Warn("Verifier reported success despite a conversation error", "error", err)
		return OutcomeConversationError
	}

	if err := tx.End(); err != nil {
		log.Error("Verifier finalize failed after successful validation", "error", err)
		return OutcomeLifecycleError
	}

	return OutcomeUnlocked
}

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/MatthiasKunnen/keylock/internal/config"
	"github.com/MatthiasKunnen/keylock/pkg/idle"
	"github.com/MatthiasKunnen/keylock/pkg/logind"
	"github.com/MatthiasKunnen/keylock/pkg/secrets"
)

const inhibitWho = "keylock"

// desktopSession holds the optional desktop integrations.
// Every field may be nil; a failed integration is logged and skipped.
type desktopSession struct {
	logger      *slog.Logger
	collections []string

	logind    *logind.Client
	inhibitor io.Closer
	keyring   *secrets.Keyring
	idle      *idle.Monitor

	unlockRequests chan struct{}
	sleep          chan bool
}

func openDesktopSession(cfg *config.Config, logger *slog.Logger) *desktopSession {
	s := &desktopSession{
		logger:         logger,
		collections:    cfg.Session.KeyringCollections,
		unlockRequests: make(chan struct{}, 1),
		sleep:          make(chan bool, 1),
	}

	if cfg.Session.Logind {
		s.connectLogind(os.Getenv("XDG_SESSION_ID"))
	}

	if len(s.collections) > 0 {
		keyring, err := secrets.Open()
		if err != nil {
			logger.Warn("Secret Service unavailable, keyring stays unlocked", "error", err)
		} else {
			s.keyring = keyring
		}
	}

	if d := cfg.Session.IdleReset.Duration; d > 0 {
		monitor, err := idle.NewWaylandMonitor(d)
		if err != nil {
			logger.Warn("Idle monitor unavailable", "error", err)
		} else {
			s.idle = monitor
		}
	}

	return s
}

func (s *desktopSession) connectLogind(sessionID string) {
	client, err := logind.Connect(sessionID)
	if err != nil {
		s.logger.Warn("logind unavailable, lock state is not published", "error", err)
		return
	}
	s.logind = client

	if err := client.SubscribeUnlock(s.unlockRequests); err != nil {
		s.logger.Warn("Failed to subscribe to logind Unlock", "error", err)
	}
	if err := client.SubscribePrepareForSleep(s.sleep); err != nil {
		s.logger.Warn("Failed to subscribe to PrepareForSleep", "error", err)
	}
	s.acquireInhibitor()
}

func (s *desktopSession) acquireInhibitor() {
	if s.logind == nil || s.inhibitor != nil {
		return
	}

	inhibitor, err := s.logind.InhibitSleep(inhibitWho, "Wipe pending password before sleep")
	if err != nil {
		s.logger.Warn("Failed to take sleep inhibitor", "error", err)
		return
	}
	s.inhibitor = inhibitor
}

func (s *desktopSession) releaseInhibitor() {
	if s.inhibitor == nil {
		return
	}

	if err := s.inhibitor.Close(); err != nil {
		s.logger.Warn("Failed to release sleep inhibitor", "error", err)
	}
	s.inhibitor = nil
}

// locked publishes the lock to logind and locks the keyring.
func (s *desktopSession) locked() {
	if s.logind != nil {
		if err := s.logind.SetLockedHint(true); err != nil {
			s.logger.Warn("Failed to set LockedHint", "error", err)
		}
	}

	if s.keyring != nil {
		if err := s.keyring.LockCollections(s.collections...); err != nil {
			s.logger.Warn("Failed to lock keyring", "error", err)
		} else {
			s.logger.Info("Keyring locked", "collections", s.collections)
		}
	}
}

func (s *desktopSession) unlocked() {
	if s.logind != nil {
		if err := s.logind.SetLockedHint(false); err != nil {
			s.logger.Warn("Failed to clear LockedHint", "error", err)
		}
	}
}

// prepareForSleep releases the inhibitor before sleep and takes it again after resume.
func (s *desktopSession) prepareForSleep(sleeping bool) {
	if sleeping {
		s.releaseInhibitor()
		return
	}
	s.acquireInhibitor()
}

// Close releases every integration. It must run on the goroutine that runs the event loop.
func (s *desktopSession) Close() {
	s.releaseInhibitor()

	if s.idle != nil {
		if err := s.idle.Close(); err != nil {
			s.logger.Warn("Failed to close idle monitor", "error", err)
		}
	}
	if s.keyring != nil {
		if err := s.keyring.Close(); err != nil {
			s.logger.Warn("Failed to close Secret Service connection", "error", err)
		}
	}
	if s.logind != nil {
		if err := s.logind.UnsubscribeUnlock(s.unlockRequests); err != nil {
			s.logger.Warn("Failed to unsubscribe from logind Unlock", "error", err)
		}
		if err := s.logind.UnsubscribePrepareForSleep(s.sleep); err != nil {
			s.logger.Warn("Failed to unsubscribe from PrepareForSleep", "error", err)
		}
		if err := s.logind.Close(); err != nil {
			s.logger.Warn("Failed to close logind connection", "error", err)
		}
	}
}

func (s *desktopSession) idleChannels() (<-chan func() error, <-chan struct{}) {
	if s.idle == nil {
		return nil, nil
	}
	return s.idle.Dispatch(), s.idle.Idle()
}

// Package audit records coarse lock events.
//
// No credential content ever crosses this package: events carry the user, the event kind and,
// for failures, a [Reason].
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reason explains why an attempt failed.
type Reason string

const (
	ReasonRejected          Reason = "rejected"
	ReasonConversationError Reason = "conversation_error"
	ReasonLifecycleError    Reason = "lifecycle_error"
	ReasonEmpty             Reason = "empty"
	ReasonOverflow          Reason = "overflow"
)

// EventType is the kind of an audit event.
type EventType string

const (
	EventLocked        EventType = "locked"
	EventUnlocked      EventType = "unlocked"
	EventAttemptFailed EventType = "attempt_failed"
)

// Sink receives audit events.
type Sink interface {
	Locked(user string)
	Unlocked(user string)
	AttemptFailed(user string, reason Reason)
}

// Event is the serialized form of an audit event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"event_id"`
	LockID    string    `json:"lock_id"`
	Type      EventType `json:"event_type"`
	User      string    `json:"user"`
	Result    string    `json:"result"`
	Reason    Reason    `json:"reason,omitempty"`
}

// JSONSink writes one JSON object per line to each of its writers.
// All events of a JSONSink share a lock ID identifying one lock/unlock cycle.
type JSONSink struct {
	mu      sync.Mutex
	writers []io.Writer
	lockID  string
	now     func() time.Time
	logger  *slog.Logger
	// failing marks writers whose last write failed, so each outage is reported once.
	failing []bool
}

// NewJSONSink creates a JSONSink writing to every w.
// A failing writer does not stop the others.
func NewJSONSink(w ...io.Writer) *JSONSink {
	return &JSONSink{
		writers: w,
		lockID:  uuid.NewString(),
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
		failing: make([]bool, len(w)),
	}
}

// WithLogger sets the logger that reports lost audit events. It returns s.
func (s *JSONSink) WithLogger(logger *slog.Logger) *JSONSink {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// LockID returns the identifier shared by all events of this sink.
func (s *JSONSink) LockID() string {
	return s.lockID
}

func (s *JSONSink) Locked(user string) {
	s.emit(EventLocked, user, "success", "")
}

func (s *JSONSink) Unlocked(user string) {
	s.emit(EventUnlocked, user, "success", "")
}

func (s *JSONSink) AttemptFailed(user string, reason Reason) {
	s.emit(EventAttemptFailed, user, "failure", reason)
}

func (s *JSONSink) emit(typ EventType, user, result string, reason Reason) {
	data, err := json.Marshal(Event{
		Timestamp: s.now().UTC(),
		ID:        uuid.NewString(),
		LockID:    s.lockID,
		Type:      typ,
		User:      user,
		Result:    result,
		Reason:    reason,
	})
	if err != nil {
		s.logger.Error("Failed to encode audit event", "event", string(typ), "error", err)
		return
	}

	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.writers {
		_, err := w.Write(data)
		switch {
		case err != nil && !s.failing[i]:
			s.failing[i] = true
			s.logger.Warn("Audit events are being lost", "writer", i, "event", string(typ), "error", err)
		case err == nil && s.failing[i]:
			s.failing[i] = false
			s.logger.Info("Audit writer recovered", "writer", i)
		}
	}
}

// SlogSink writes audit events as log records.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink. Records are grouped under "audit".
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger.WithGroup("audit")}
}

func (s *SlogSink) Locked(user string) {
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, "Screen locked",
		slog.String("event", string(EventLocked)), slog.String("user", user))
}

func (s *SlogSink) Unlocked(user string) {
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, "Screen unlocked",
		slog.String("event", string(EventUnlocked)), slog.String("user", user))
}

func (s *SlogSink) AttemptFailed(user string, reason Reason) {
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, "Failed to unlock screen",
		slog.String("event", string(EventAttemptFailed)),
		slog.String("user", user),
		slog.String("reason", string(reason)))
}

// Tee fans events out to every sink in order.
type Tee []Sink

func (t Tee) Locked(user string) {
	for _, s := range t {
		s.Locked(user)
	}
}

func (t Tee) Unlocked(user string) {
	for _, s := range t {
		s.Unlocked(user)
	}
}

func (t Tee) AttemptFailed(user string, reason Reason) {
	for _, s := range t {
		s.AttemptFailed(user, reason)
	}
}

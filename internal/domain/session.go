// Package domain contains core domain types for the exhibition guestbook.
package domain

import (
	"time"
)

// Stage is the visitor's position in the narrative.
type Stage int

const (
	// StageGaze is the opening state: the first poster, no input collected.
	StageGaze Stage = iota
	// StageExchange collects the visitor's name, email and first segment.
	StageExchange
	// StageReflect collects the optional second segment and awaits submit.
	StageReflect
)

// String returns a short label for logging.
func (s Stage) String() string {
	switch s {
	case StageGaze:
		return "gaze"
	case StageExchange:
		return "exchange"
	case StageReflect:
		return "reflect"
	default:
		return "unknown"
	}
}

// GuestSession holds one visitor's narrative state. Sessions are keyed by the
// anonymous cookie identity and never shared between visitors.
type GuestSession struct {
	SessionID      string    `json:"session_id"`
	Stage          Stage     `json:"stage"`
	Draft          Draft     `json:"draft"`
	LastSendAt     time.Time `json:"last_send_at"`
	SentContentIDs []string  `json:"sent_content_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasSent reports whether a content identity was already processed this session.
func (s *GuestSession) HasSent(id string) bool {
	for _, seen := range s.SentContentIDs {
		if seen == id {
			return true
		}
	}
	return false
}

// MarkSent records a processed content identity and resets the cooldown clock.
// Identities accumulate for the session's lifetime and are never removed.
func (s *GuestSession) MarkSent(id string, now time.Time) {
	if !s.HasSent(id) {
		s.SentContentIDs = append(s.SentContentIDs, id)
	}
	s.LastSendAt = now
}

// ResetDraft returns the session to the opening stage and clears the draft.
// Guard state (sent identities, cooldown clock) survives a reset so a visitor
// cannot replay a delivered message by resetting first.
func (s *GuestSession) ResetDraft() {
	s.Draft.Clear()
	s.Stage = StageGaze
}

// Package guard decides whether a draft submission may be delivered.
//
// The guard is deliberately side-effect-free: it only inspects the session
// and the clock. Callers that go on to attempt delivery are responsible for
// recording the identity and the attempt time via GuestSession.MarkSent.
package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/naicoco/guestbook/internal/domain"
)

// Decision is the guard's verdict for a submission attempt.
type Decision int

const (
	// Proceed allows exactly one delivery attempt for this content.
	Proceed Decision = iota
	// Duplicate means identical content was already processed this session.
	Duplicate
	// Cooldown means the minimum inter-submission interval has not elapsed.
	Cooldown
)

// String returns a short label for logging.
func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Duplicate:
		return "duplicate"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// ContentID derives a deterministic identity for a submission's content.
// Fields are length-prefixed so that shifting bytes between fields cannot
// produce a colliding identity, and the stage tag keeps otherwise identical
// text from different stages distinct.
func ContentID(stage domain.Stage, name, email, payload string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\n", stage)
	for _, field := range []string{name, email, payload} {
		fmt.Fprintf(h, "%d:%s\n", len(field), field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Admit checks the cooldown window first, then the session's seen-set.
// It never mutates the session.
func Admit(sess *domain.GuestSession, id string, now time.Time, cooldown time.Duration) Decision {
	if !sess.LastSendAt.IsZero() && now.Sub(sess.LastSendAt) < cooldown {
		return Cooldown
	}
	if sess.HasSent(id) {
		return Duplicate
	}
	return Proceed
}

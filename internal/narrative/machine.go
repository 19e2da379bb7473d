// Package narrative drives the visitor through the guestbook's staged story
// and gates submission delivery behind the cooldown/duplicate guard.
//
// The transition logic is kept separate from rendering: Step mutates a
// session according to one visitor action, Render builds a view from the
// resulting state. Neither touches the HTTP layer.
package narrative

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/naicoco/guestbook/internal/domain"
	"github.com/naicoco/guestbook/internal/guard"
	"github.com/naicoco/guestbook/internal/mail"
)

// ActionKind identifies a visitor action.
type ActionKind string

const (
	// ActionAdvance confirms the intro and moves to the collecting stage.
	ActionAdvance ActionKind = "advance"
	// ActionShare submits the first segment along with name and email.
	ActionShare ActionKind = "share"
	// ActionSubmit finalizes the submission, with an optional second segment.
	ActionSubmit ActionKind = "submit"
	// ActionReset clears the draft and returns to the opening stage.
	ActionReset ActionKind = "reset"
)

// Action is one visitor-initiated step. Unused fields stay empty.
type Action struct {
	Kind       ActionKind `json:"kind"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	SegmentOne string     `json:"segment_one"`
	SegmentTwo string     `json:"segment_two"`
	// Honeypot is a hidden field legitimate visitors never fill in.
	Honeypot string `json:"website"`
}

// Outcome summarizes what one Step did.
type Outcome int

const (
	// OutcomeAdvanced moved the narrative forward without delivery.
	OutcomeAdvanced Outcome = iota
	// OutcomeShared stored the first segment and contact fields.
	OutcomeShared
	// OutcomeDelivered sent the submission to the organizer.
	OutcomeDelivered
	// OutcomeSavedLocally wrote the submission to the fallback store.
	OutcomeSavedLocally
	// OutcomeMisconfigured means delivery refused to start (missing secrets).
	OutcomeMisconfigured
	// OutcomeCooldown rejected the attempt inside the cooldown window.
	OutcomeCooldown
	// OutcomeDuplicate rejected a resubmission of identical content.
	OutcomeDuplicate
	// OutcomeIgnored silently dropped a bot-trap action. No state changed.
	OutcomeIgnored
	// OutcomeReset cleared the draft and returned to the opening stage.
	OutcomeReset
)

// String returns a short label for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeShared:
		return "shared"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeSavedLocally:
		return "saved_locally"
	case OutcomeMisconfigured:
		return "misconfigured"
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ErrIllegalAction is returned when an action is not valid for the session's
// current stage.
var ErrIllegalAction = errors.New("action not allowed in current stage")

// ErrEmptySegment is returned when the required first segment is blank.
var ErrEmptySegment = errors.New("first segment must not be empty")

// Deliverer is the delivery pipeline seen by the machine.
type Deliverer interface {
	Deliver(ctx context.Context, name, email, payload string) mail.Result
}

// Machine applies visitor actions to guest sessions.
type Machine struct {
	pipeline Deliverer
	cooldown time.Duration
	now      func() time.Time
}

// NewMachine creates a machine with the given delivery pipeline and cooldown.
func NewMachine(pipeline Deliverer, cooldown time.Duration) *Machine {
	return &Machine{pipeline: pipeline, cooldown: cooldown, now: time.Now}
}

// WithClock overrides the machine's clock. Intended for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Step validates the action against the session's stage, applies it, and
// reports what happened. The honeypot is checked on every terminal action;
// a tripped trap changes nothing and is reported as OutcomeIgnored so the
// caller can respond as if nothing happened.
func (m *Machine) Step(ctx context.Context, sess *domain.GuestSession, act Action) (Outcome, error) {
	switch act.Kind {
	case ActionAdvance:
		if sess.Stage != domain.StageGaze {
			return OutcomeIgnored, ErrIllegalAction
		}
		sess.Stage = domain.StageExchange
		return OutcomeAdvanced, nil

	case ActionShare:
		if sess.Stage != domain.StageExchange {
			return OutcomeIgnored, ErrIllegalAction
		}
		if act.Honeypot != "" {
			return OutcomeIgnored, nil
		}
		if strings.TrimSpace(act.SegmentOne) == "" {
			return OutcomeIgnored, ErrEmptySegment
		}
		sess.Draft.Name = act.Name
		sess.Draft.Email = act.Email
		sess.Draft.SegmentOne = act.SegmentOne
		sess.Stage = domain.StageReflect
		return OutcomeShared, nil

	case ActionSubmit:
		if sess.Stage != domain.StageReflect {
			return OutcomeIgnored, ErrIllegalAction
		}
		if act.Honeypot != "" {
			return OutcomeIgnored, nil
		}
		// The second segment is the one piece of mutable UI state that is
		// only committed to the draft when submit is pressed.
		sess.Draft.SegmentTwo = act.SegmentTwo
		return m.submit(ctx, sess), nil

	case ActionReset:
		if sess.Stage == domain.StageGaze {
			return OutcomeIgnored, ErrIllegalAction
		}
		if act.Honeypot != "" {
			return OutcomeIgnored, nil
		}
		sess.ResetDraft()
		return OutcomeReset, nil

	default:
		return OutcomeIgnored, ErrIllegalAction
	}
}

func (m *Machine) submit(ctx context.Context, sess *domain.GuestSession) Outcome {
	payload := sess.Draft.Payload()
	id := guard.ContentID(sess.Stage, sess.Draft.Name, sess.Draft.Email, payload)
	now := m.now()

	switch guard.Admit(sess, id, now, m.cooldown) {
	case guard.Cooldown:
		return OutcomeCooldown
	case guard.Duplicate:
		return OutcomeDuplicate
	}

	res := m.pipeline.Deliver(ctx, sess.Draft.Name, sess.Draft.Email, payload)
	if res.Attempted() {
		sess.MarkSent(id, now)
	}

	switch res {
	case mail.Delivered:
		return OutcomeDelivered
	case mail.FallbackSaved:
		return OutcomeSavedLocally
	default:
		return OutcomeMisconfigured
	}
}

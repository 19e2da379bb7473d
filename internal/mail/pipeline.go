package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/naicoco/guestbook/internal/config"
	"github.com/naicoco/guestbook/internal/fallback"
	"github.com/naicoco/guestbook/internal/validate"
)

// AnonymousName is substituted when the visitor left no usable display name.
const AnonymousName = "匿名訪客"

const bodyDelimiter = "----------------------------------------"

// Result is the tagged outcome of a delivery attempt. Callers can tell
// "sent" from "saved locally" from "misconfigured" without side channels.
type Result int

const (
	// Delivered means the message reached the mail transport.
	Delivered Result = iota
	// FallbackSaved means the transport failed and the submission was
	// written to the local fallback store instead. Nothing was lost.
	FallbackSaved
	// ConfigMissing means the email secrets are absent or incomplete. No
	// network attempt and no fallback record; this is a deployment error,
	// not a runtime fault to persist.
	ConfigMissing
)

// String returns a short label for logging.
func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case FallbackSaved:
		return "fallback_saved"
	case ConfigMissing:
		return "config_missing"
	default:
		return "unknown"
	}
}

// Attempted reports whether the pipeline made a confirmed delivery attempt
// (network send or fallback write). Guard state is only updated after an
// attempted delivery.
func (r Result) Attempted() bool {
	return r == Delivered || r == FallbackSaved
}

// Pipeline composes a mail message from a submission and attempts delivery,
// degrading to the fallback store on any transport failure. Exactly one
// network attempt or one durable local write happens per invocation, unless
// configuration is missing.
type Pipeline struct {
	cfg      *config.Config
	sender   Sender
	fallback *fallback.Store
}

// NewPipeline wires the delivery pipeline.
func NewPipeline(cfg *config.Config, sender Sender, fb *fallback.Store) *Pipeline {
	return &Pipeline{cfg: cfg, sender: sender, fallback: fb}
}

// Deliver sends one submission to the organizer, copying the visitor when
// their address is syntactically valid. Transport failures never propagate;
// they degrade to a fallback save.
func (p *Pipeline) Deliver(ctx context.Context, name, email, payload string) Result {
	if !p.cfg.EmailConfigured() {
		slog.Error("Email secrets missing, refusing delivery attempt")
		return ConfigMissing
	}

	name = validate.SanitizeLine(name)
	if name == "" {
		name = AnonymousName
	}

	rcpts := []string{p.cfg.Email.Receiver}
	msg := Message{
		Subject: fmt.Sprintf("【展覽留言】來自 %s 的留言", name),
		From:    fmt.Sprintf("夜貓店留言精靈 <%s>", p.cfg.Email.Sender),
		To:      p.cfg.Email.Receiver,
	}

	// An invalid-but-present address is silently dropped from delivery; the
	// organizer's copy still goes out.
	shownEmail := fallback.EmailPlaceholder
	if email != "" && validate.ValidEmail(email) {
		msg.Cc = email
		msg.ReplyTo = email
		rcpts = append(rcpts, email)
		shownEmail = email
	}

	msg.Body = fmt.Sprintf(
		"展覽《牠眼中的他眼中的牠》收到一則新留言。\n\n姓名：%s\n信箱：%s\n\n%s\n%s\n%s\n",
		name, shownEmail, bodyDelimiter, payload, bodyDelimiter)

	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.Email.SendTimeout)
	defer cancel()

	if err := p.sender.Send(sendCtx, msg, rcpts); err != nil {
		slog.Warn("Mail delivery failed, saving to fallback store", "error", err)
		path, saveErr := p.fallback.Save(name, email, payload)
		if saveErr != nil {
			// Unwritable fallback directory is an unrecoverable local fault.
			slog.Error("Fallback save failed", "error", saveErr)
		} else {
			slog.Info("Submission saved to fallback store", "path", path)
		}
		return FallbackSaved
	}

	slog.Info("Submission delivered", "recipients", len(rcpts))
	return Delivered
}

package mail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/naicoco/guestbook/internal/config"
	"github.com/naicoco/guestbook/internal/fallback"
)

// stubSender records the last message or fails every send.
type stubSender struct {
	fail  bool
	calls int
	msg   Message
	rcpts []string
}

func (s *stubSender) Send(_ context.Context, msg Message, rcpts []string) error {
	s.calls++
	s.msg = msg
	s.rcpts = rcpts
	if s.fail {
		return errors.New("connection refused")
	}
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:        "8080",
		DBPath:      "ignored",
		FallbackDir: "ignored",
		Cooldown:    8 * time.Second,
		Email: config.EmailConfig{
			Sender:      "cats@example.com",
			Password:    "secret",
			Receiver:    "naicoco@example.com",
			SMTPHost:    "smtp.example.com",
			SMTPPort:    465,
			SendTimeout: time.Second,
		},
	}
}

func testPipeline(t *testing.T, cfg *config.Config, sender Sender) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	fb, err := fallback.New(dir)
	if err != nil {
		t.Fatalf("fallback.New failed: %v", err)
	}
	return NewPipeline(cfg, sender, fb), dir
}

func countRecords(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read fallback dir: %v", err)
	}
	return len(entries)
}

func TestDeliverSuccess(t *testing.T) {
	sender := &stubSender{}
	p, dir := testPipeline(t, testConfig(t), sender)

	res := p.Deliver(context.Background(), "Ren", "ren@example.com", "I see light.")
	if res != Delivered {
		t.Fatalf("Deliver = %v, want Delivered", res)
	}
	if sender.calls != 1 {
		t.Errorf("sender called %d times, want 1", sender.calls)
	}
	if countRecords(t, dir) != 0 {
		t.Error("fallback record written on successful delivery")
	}

	if sender.msg.Cc != "ren@example.com" {
		t.Errorf("Cc = %q, want visitor address", sender.msg.Cc)
	}
	if sender.msg.ReplyTo != "ren@example.com" {
		t.Errorf("Reply-To = %q, want visitor address", sender.msg.ReplyTo)
	}
	if len(sender.rcpts) != 2 {
		t.Errorf("recipients = %v, want organizer plus visitor", sender.rcpts)
	}
	if !strings.Contains(sender.msg.Subject, "Ren") {
		t.Errorf("subject %q does not embed the display name", sender.msg.Subject)
	}
	if !strings.Contains(sender.msg.Body, "I see light.") {
		t.Errorf("body does not contain the payload: %q", sender.msg.Body)
	}
}

func TestDeliverInvalidEmailDropped(t *testing.T) {
	sender := &stubSender{}
	p, _ := testPipeline(t, testConfig(t), sender)

	res := p.Deliver(context.Background(), "Ren", "not-an-email", "hello")
	if res != Delivered {
		t.Fatalf("Deliver = %v, want Delivered", res)
	}
	if sender.msg.Cc != "" {
		t.Errorf("Cc = %q, want empty for invalid address", sender.msg.Cc)
	}
	if sender.msg.ReplyTo != "" {
		t.Errorf("Reply-To = %q, want empty for invalid address", sender.msg.ReplyTo)
	}
	if len(sender.rcpts) != 1 || sender.rcpts[0] != "naicoco@example.com" {
		t.Errorf("recipients = %v, want organizer only", sender.rcpts)
	}
}

func TestDeliverSanitizesName(t *testing.T) {
	sender := &stubSender{}
	p, _ := testPipeline(t, testConfig(t), sender)

	p.Deliver(context.Background(), "Ren\r\nBcc: evil@example.com", "", "hello")
	if strings.ContainsAny(sender.msg.Subject, "\r\n") {
		t.Errorf("subject carries raw line breaks: %q", sender.msg.Subject)
	}
}

func TestDeliverAnonymousPlaceholder(t *testing.T) {
	sender := &stubSender{}
	p, _ := testPipeline(t, testConfig(t), sender)

	p.Deliver(context.Background(), "  \r\n ", "", "hello")
	if !strings.Contains(sender.msg.Subject, AnonymousName) {
		t.Errorf("subject %q missing anonymous placeholder", sender.msg.Subject)
	}
}

func TestDeliverTransportFailure(t *testing.T) {
	sender := &stubSender{fail: true}
	p, dir := testPipeline(t, testConfig(t), sender)

	res := p.Deliver(context.Background(), "Ren", "", "Hello.")
	if res != FallbackSaved {
		t.Fatalf("Deliver = %v, want FallbackSaved", res)
	}
	if countRecords(t, dir) != 1 {
		t.Fatalf("expected exactly one fallback record, found %d", countRecords(t, dir))
	}

	entries, _ := os.ReadDir(dir)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read fallback record: %v", err)
	}
	if !strings.Contains(string(data), "Hello.") {
		t.Errorf("fallback record missing payload: %q", data)
	}
}

func TestDeliverEveryFailureSavesOnce(t *testing.T) {
	sender := &stubSender{fail: true}
	p, dir := testPipeline(t, testConfig(t), sender)

	for i := 0; i < 3; i++ {
		if res := p.Deliver(context.Background(), "Ren", "", "hello"); res != FallbackSaved {
			t.Fatalf("Deliver #%d = %v, want FallbackSaved", i, res)
		}
	}
	if got := countRecords(t, dir); got != 3 {
		t.Errorf("expected one record per failed send, found %d", got)
	}
}

func TestDeliverConfigMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email.Password = ""
	sender := &stubSender{}
	p, dir := testPipeline(t, cfg, sender)

	res := p.Deliver(context.Background(), "Ren", "", "hello")
	if res != ConfigMissing {
		t.Fatalf("Deliver = %v, want ConfigMissing", res)
	}
	if sender.calls != 0 {
		t.Error("network attempt made despite missing secrets")
	}
	if countRecords(t, dir) != 0 {
		t.Error("fallback record written despite missing secrets")
	}
}

func TestResultAttempted(t *testing.T) {
	if !Delivered.Attempted() || !FallbackSaved.Attempted() {
		t.Error("delivered and fallback-saved are confirmed attempts")
	}
	if ConfigMissing.Attempted() {
		t.Error("config-missing is not a delivery attempt")
	}
}

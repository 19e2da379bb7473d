package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/google/uuid"

	"github.com/naicoco/guestbook/internal/config"
)

// SMTPSender delivers mail over an implicit-TLS SMTP connection (submission
// over port 465, the Gmail style). The dial respects the context deadline;
// once connected, the SMTP transaction is bounded by the same deadline via
// the connection's own deadline.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send performs one SMTP transaction: TLS dial, PLAIN auth, MAIL/RCPT/DATA.
func (s *SMTPSender) Send(ctx context.Context, msg Message, rcpts []string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("set connection deadline: %w", err)
		}
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: s.cfg.SMTPHost})
	client, err := smtp.NewClient(tlsConn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	if err := client.Mail(s.cfg.Sender); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	messageID := fmt.Sprintf("%s@guestbook", uuid.New().String())
	if _, err := w.Write(msg.encode(messageID)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return client.Quit()
}

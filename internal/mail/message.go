// Package mail composes and delivers guestbook submissions, falling back to
// durable local storage when the transport fails.
package mail

import (
	"context"
	"fmt"
	"strings"
)

// Message is a structured outbound mail message.
type Message struct {
	Subject string
	From    string
	To      string
	Cc      string
	ReplyTo string
	Body    string
}

// Sender delivers a composed message to the given envelope recipients.
type Sender interface {
	Send(ctx context.Context, msg Message, rcpts []string) error
}

// encode renders the message as RFC 5322 header lines plus body. Header
// values are sanitized upstream; this only handles layout.
func (m Message) encode(messageID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	if m.Cc != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", m.Cc)
	}
	if m.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", m.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const defaultMailgunTimeout = 10 * time.Second

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun sends through the Mailgun HTTP API. The client is built once and
// shared by concurrent sends.
type Mailgun struct {
	client  *mg.MailgunImpl
	from    string
	timeout time.Duration
}

// MailgunOption customizes NewMailgun.
type MailgunOption func(*Mailgun)

// WithAPIBase points the client at another endpoint, e.g. mg.APIBaseEU.
func WithAPIBase(base string) MailgunOption {
	return func(m *Mailgun) { m.client.SetAPIBase(base) }
}

func NewMailgun(domain, apiKey, from string, opts ...MailgunOption) *Mailgun {
	m := &Mailgun{
		client:  mg.NewMailgun(domain, apiKey),
		from:    from,
		timeout: defaultMailgunTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send delivers one message; html is attached only when non-empty.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.from, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if _, _, err := m.client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun: %w", err)
	}
	return nil
}

var _ Sender = (*Mailgun)(nil)

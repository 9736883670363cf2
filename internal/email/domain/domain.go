package domain

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured is returned when a transport lacks credentials or a sender.
	ErrNotConfigured = errors.New("email transport not configured")
	// ErrInvalidMessage is returned before any network call for unusable input.
	ErrInvalidMessage = errors.New("invalid email message")
)

// Message is one outbound email. HTML is the rich body, Text the plain-text
// fallback; at least one of them must be set. An empty From lets the transport
// use its configured sender.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	// Tag is a short category label ("overdue-alerts") used by providers that support it.
	Tag string
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("recipient is required"))
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("subject is required"))
	}
	if m.HTML == "" && m.Text == "" {
		return errors.Join(ErrInvalidMessage, errors.New("body is required"))
	}
	return nil
}

// Sender is the pluggable mail transport. Implementations must be safe for
// sequential reuse across recipients.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

package service

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
)

// Ensure Postmark implements domain.Sender
var _ edomain.Sender = (*Postmark)(nil)

type Postmark struct {
	cfg    config.MailConfig
	client *postmark.Client
}

func NewPostmark(cfg config.MailConfig) *Postmark {
	return &Postmark{cfg: cfg, client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)}
}

// Send uses Postmark's transactional API. Open tracking only; link tracking
// stays off so the call-to-action URL is delivered untouched.
func (p *Postmark) Send(ctx context.Context, msg edomain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = p.cfg.From
	}
	if p.cfg.PostmarkServerToken == "" || from == "" {
		return fmt.Errorf("%w: postmark server token and sender are required", edomain.ErrNotConfigured)
	}
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       from,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTML,
		TextBody:   msg.Text,
		TrackOpens: true,
	})
	if err != nil {
		return fmt.Errorf("postmark send to %s: %w", msg.To, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

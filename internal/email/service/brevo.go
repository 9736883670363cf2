package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
)

// Ensure Brevo implements domain.Sender
var _ edomain.Sender = (*Brevo)(nil)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type Brevo struct {
	cfg  config.MailConfig
	http *http.Client
}

func NewBrevo(cfg config.MailConfig) *Brevo {
	return &Brevo{cfg: cfg, http: &http.Client{Timeout: 10 * time.Second}}
}

type brevoEmail struct {
	To          []map[string]string `json:"to"`
	Sender      map[string]string   `json:"sender"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent,omitempty"`
	TextContent string              `json:"textContent,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

func (b *Brevo) Send(ctx context.Context, msg edomain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	sender := msg.From
	if sender == "" {
		sender = b.cfg.From
	}
	if b.cfg.BrevoAPIKey == "" || sender == "" {
		return fmt.Errorf("%w: brevo api key and sender are required", edomain.ErrNotConfigured)
	}
	payload := brevoEmail{
		To:          []map[string]string{{"email": msg.To}},
		Sender:      map[string]string{"email": sender},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}
	if msg.Tag != "" {
		payload.Tags = []string{msg.Tag}
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoEndpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", b.cfg.BrevoAPIKey)
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: %s", resp.Status)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
	sdomain "github.com/Shrey-sa/tree-tracker/internal/settings/domain"
)

// Ensure Router implements domain.Sender
var _ edomain.Sender = (*Router)(nil)

// Router picks the transport per message: the email.provider setting wins,
// then EMAIL_PROVIDER from config. The sender address follows the same order.
type Router struct {
	cfg      config.MailConfig
	settings sdomain.Service
	senders  map[string]edomain.Sender
}

func NewRouter(settings sdomain.Service, cfg config.MailConfig) *Router {
	return &Router{
		cfg:      cfg,
		settings: settings,
		senders: map[string]edomain.Sender{
			"smtp":     NewSMTP(cfg),
			"brevo":    NewBrevo(cfg),
			"postmark": NewPostmark(cfg),
			"file":     NewFile(cfg.DevDir),
		},
	}
}

func (r *Router) Send(ctx context.Context, msg edomain.Message) error {
	prov, _ := r.settings.GetString(ctx, sdomain.KeyEmailProvider, r.cfg.Provider)
	prov = strings.ToLower(strings.TrimSpace(prov))
	if msg.From == "" {
		msg.From, _ = r.settings.GetString(ctx, sdomain.KeyEmailFrom, r.cfg.From)
	}
	s, ok := r.senders[prov]
	if !ok {
		return fmt.Errorf("%w: unknown email provider %q", edomain.ErrNotConfigured, prov)
	}
	return s.Send(ctx, msg)
}

// Provider reports the transport the next Send would use.
func (r *Router) Provider(ctx context.Context) string {
	prov, _ := r.settings.GetString(ctx, sdomain.KeyEmailProvider, r.cfg.Provider)
	return strings.ToLower(strings.TrimSpace(prov))
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
)

// Resolver decides who receives digests and what each recipient may see.
type Resolver struct {
	repo domain.Repository
}

func NewResolver(repo domain.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns admins and supervisors with an email, ordered by id.
// An empty result is not an error.
func (r *Resolver) Resolve(ctx context.Context) ([]domain.Recipient, error) {
	staff, err := r.repo.ListRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	out := make([]domain.Recipient, 0, len(staff))
	for _, s := range staff {
		if rcp, ok := RecipientFor(s); ok {
			out = append(out, rcp)
		}
	}
	return out, nil
}

// RecipientFor maps a staff member to a recipient. Admins see everything;
// supervisors see their affiliated zones only. Field workers and staff
// without an email are never recipients.
func RecipientFor(s domain.Staff) (domain.Recipient, bool) {
	if strings.TrimSpace(s.Email) == "" {
		return domain.Recipient{}, false
	}
	switch s.Role {
	case domain.RoleAdmin:
		return domain.Recipient{Staff: s, Scope: domain.FullScope()}, true
	case domain.RoleSupervisor:
		return domain.Recipient{Staff: s, Scope: domain.ZoneScope(s.ZoneIDs)}, true
	default:
		return domain.Recipient{}, false
	}
}

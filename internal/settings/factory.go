package settings

import (
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
	repo "github.com/Shrey-sa/tree-tracker/internal/settings/repository"
	svc "github.com/Shrey-sa/tree-tracker/internal/settings/service"
)

// New wires the settings repository and service for the given store.
func New(h *database.Handle) *svc.Service {
	return svc.New(repo.New(h))
}

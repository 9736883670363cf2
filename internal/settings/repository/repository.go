package repository

import (
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
	sdomain "github.com/Shrey-sa/tree-tracker/internal/settings/domain"
)

// New returns the settings repository matching the handle's backend.
func New(h *database.Handle) sdomain.Repository {
	if h.Driver == database.SQLite {
		return NewSQLite(h.SQLite)
	}
	return NewPostgres(h.PG)
}

package repository

import (
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
)

// New returns the digest repository matching the handle's backend.
func New(h *database.Handle) domain.Repository {
	if h.Driver == database.SQLite {
		return NewSQLite(h.SQLite)
	}
	return NewPostgres(h.PG)
}

// Package dbtest opens migrated in-memory stores for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
)

// NewSQLite returns an in-memory SQLite handle with all migrations applied.
// It is closed automatically when the test completes.
func NewSQLite(t *testing.T) *database.Handle {
	t.Helper()

	goose.SetLogger(goose.NopLogger())

	ctx := context.Background()
	h, err := database.Open(ctx, "sqlite::memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(h.Close)

	if err := database.Migrate(ctx, h, "up"); err != nil {
		t.Fatalf("migrating test store: %v", err)
	}
	return h
}

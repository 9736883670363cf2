package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Shrey-sa/tree-tracker/migrations"
)

// Driver identifies the backing store selected by DATABASE_URL.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// Handle carries exactly one open store: a pgx pool for Postgres, or an sqlx
// DB over modernc sqlite for local/embedded use.
type Handle struct {
	Driver Driver
	PG     *pgxpool.Pool
	SQLite *sqlx.DB

	url string
}

// Open selects the backend from the URL scheme: postgres:// or postgresql://
// use pgx; sqlite://<path> or sqlite::memory: use sqlite.
func Open(ctx context.Context, databaseURL string) (*Handle, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	if path, ok := sqlitePath(databaseURL); ok {
		return openSQLite(path)
	}

	pgCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	return &Handle{Driver: Postgres, PG: pool, url: databaseURL}, nil
}

func sqlitePath(u string) (string, bool) {
	switch {
	case u == "sqlite::memory:" || u == "sqlite://:memory:":
		return ":memory:", true
	case strings.HasPrefix(u, "sqlite://"):
		return strings.TrimPrefix(u, "sqlite://"), true
	case strings.HasPrefix(u, "sqlite:"):
		return strings.TrimPrefix(u, "sqlite:"), true
	}
	return "", false
}

func openSQLite(path string) (*Handle, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return &Handle{Driver: SQLite, SQLite: db, url: "sqlite://" + path}, nil
}

// Ping checks the store is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	if h.Driver == SQLite {
		return h.SQLite.PingContext(ctx)
	}
	return h.PG.Ping(ctx)
}

// Close releases the underlying pool or connection.
func (h *Handle) Close() {
	if h.PG != nil {
		h.PG.Close()
	}
	if h.SQLite != nil {
		_ = h.SQLite.Close()
	}
}

// Migrate runs a goose subcommand (up, down, status) with the embedded
// migrations for the handle's dialect.
func Migrate(ctx context.Context, h *Handle, subcmd string) error {
	var (
		db      *sql.DB
		dialect string
		dir     string
	)
	switch h.Driver {
	case SQLite:
		db, dialect, dir = h.SQLite.DB, "sqlite3", "sqlite"
	default:
		pdb, err := sql.Open("pgx", h.url)
		if err != nil {
			return err
		}
		defer func() {
			_ = pdb.Close()
		}()
		db, dialect, dir = pdb, "postgres", "postgres"
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	switch subcmd {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	default:
		return fmt.Errorf("unsupported migrate subcommand %q", subcmd)
	}
}

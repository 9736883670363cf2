package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
)

// store writes seed rows through one code path for both dialects. Queries use
// ? placeholders and are rebound for Postgres.
type store struct{ h *database.Handle }

func newStore(h *database.Handle) *store { return &store{h: h} }

func (s *store) insert(ctx context.Context, q string, args ...any) (int64, error) {
	var id int64
	if s.h.Driver == database.SQLite {
		err := s.h.SQLite.QueryRowxContext(ctx, q+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	err := s.h.PG.QueryRow(ctx, sqlx.Rebind(sqlx.DOLLAR, q+" RETURNING id"), args...).Scan(&id)
	return id, err
}

func (s *store) exec(ctx context.Context, q string, args ...any) error {
	if s.h.Driver == database.SQLite {
		_, err := s.h.SQLite.ExecContext(ctx, q, args...)
		return err
	}
	_, err := s.h.PG.Exec(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
	return err
}

// date and stamp encode times the way each schema stores them.
func (s *store) date(t time.Time) any {
	if s.h.Driver == database.SQLite {
		return t.UTC().Format("2006-01-02")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *store) stamp(t time.Time) any {
	if s.h.Driver == database.SQLite {
		return t.UTC().Format("2006-01-02T15:04:05Z")
	}
	return t.UTC()
}

func (s *store) addZone(ctx context.Context, name, city string) (int64, error) {
	return s.insert(ctx, "INSERT INTO zones (name, city) VALUES (?, ?)", name, city)
}

func (s *store) addSpecies(ctx context.Context, common, scientific string) (int64, error) {
	return s.insert(ctx, "INSERT INTO species (common_name, scientific_name) VALUES (?, ?)", common, scientific)
}

type staffSeed struct {
	Username, First, Last, Email, Role string
	Zones                              []int64
}

func (s *store) addStaff(ctx context.Context, in staffSeed) (int64, error) {
	var email any
	if in.Email != "" {
		email = in.Email
	}
	id, err := s.insert(ctx, "INSERT INTO users (username, first_name, last_name, email, role) VALUES (?, ?, ?, ?, ?)",
		in.Username, in.First, in.Last, email, in.Role)
	if err != nil {
		return 0, fmt.Errorf("insert user %s: %w", in.Username, err)
	}
	for _, z := range in.Zones {
		if err := s.exec(ctx, "INSERT INTO staff_zones (user_id, zone_id) VALUES (?, ?)", id, z); err != nil {
			return 0, fmt.Errorf("link %s to zone %d: %w", in.Username, z, err)
		}
	}
	return id, nil
}

type treeSeed struct {
	Zone, Species int64
	Tag           string
	Health        string
	CreatedAt     time.Time
}

func (s *store) addTree(ctx context.Context, in treeSeed) (int64, error) {
	var tag any
	if in.Tag != "" {
		tag = in.Tag
	}
	return s.insert(ctx, "INSERT INTO trees (zone_id, species_id, tag_number, current_health, created_at) VALUES (?, ?, ?, ?, ?)",
		in.Zone, in.Species, tag, in.Health, s.stamp(in.CreatedAt))
}

func (s *store) addHealthLog(ctx context.Context, tree int64, status string, at time.Time) error {
	return s.exec(ctx, "INSERT INTO health_logs (tree_id, health_status, logged_at) VALUES (?, ?, ?)", tree, status, s.stamp(at))
}

type taskSeed struct {
	Title, Type, Priority, Status string
	Zone                          int64
	Tree, Assignee                *int64
	Due                           time.Time
}

func (s *store) addTask(ctx context.Context, in taskSeed) (int64, error) {
	return s.insert(ctx, "INSERT INTO maintenance_tasks (title, task_type, priority, zone_id, tree_id, due_date, status, assigned_to) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		in.Title, in.Type, in.Priority, in.Zone, in.Tree, s.date(in.Due), in.Status, in.Assignee)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

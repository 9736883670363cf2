package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
)

// SQLite stores dates as text: due dates as 2006-01-02 and timestamps as
// 2006-01-02T15:04:05Z in UTC, so string comparison matches time order.
const (
	sqliteDate      = "2006-01-02"
	sqliteTimestamp = "2006-01-02T15:04:05Z"
)

type SQLiteRepository struct{ db *sqlx.DB }

func NewSQLite(db *sqlx.DB) *SQLiteRepository { return &SQLiteRepository{db: db} }

type sqliteTask struct {
	ID        int64         `db:"id"`
	Title     string        `db:"title"`
	TaskType  string        `db:"task_type"`
	Priority  string        `db:"priority"`
	ZoneID    int64         `db:"zone_id"`
	ZoneName  string        `db:"zone_name"`
	TreeID    sql.NullInt64 `db:"tree_id"`
	DueDate   string        `db:"due_date"`
	FirstName string        `db:"first_name"`
	LastName  string        `db:"last_name"`
	Username  string        `db:"username"`
}

type sqliteTree struct {
	ID           int64          `db:"id"`
	TagNumber    string         `db:"tag_number"`
	Health       string         `db:"current_health"`
	ZoneID       int64          `db:"zone_id"`
	ZoneName     string         `db:"zone_name"`
	Species      string         `db:"species"`
	CreatedAt    string         `db:"created_at"`
	LastLoggedAt sql.NullString `db:"last_logged_at"`
}

type sqliteStaff struct {
	ID        int64  `db:"id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
}

func (s sqliteStaff) toDomain() domain.Staff {
	return domain.Staff{ID: s.ID, Username: s.Username, FirstName: s.FirstName, LastName: s.LastName, Email: s.Email, Role: domain.Role(s.Role)}
}

func (r *SQLiteRepository) ListOverdueTasks(ctx context.Context, today time.Time) ([]domain.TaskRecord, error) {
	var rows []sqliteTask
	if err := r.db.SelectContext(ctx, &rows, fmt.Sprintf(selectOverdueTasks, "?"), today.Format(sqliteDate)); err != nil {
		return nil, err
	}
	out := make([]domain.TaskRecord, 0, len(rows))
	for _, row := range rows {
		due, err := time.Parse(sqliteDate, row.DueDate)
		if err != nil {
			return nil, fmt.Errorf("task %d: parse due_date: %w", row.ID, err)
		}
		t := domain.TaskRecord{
			ID: row.ID, Title: row.Title, TaskType: row.TaskType, Priority: row.Priority,
			ZoneID: row.ZoneID, ZoneName: row.ZoneName, DueDate: due,
		}
		if row.TreeID.Valid {
			id := row.TreeID.Int64
			t.TreeID = &id
		}
		if row.Username != "" {
			t.Assignee = domain.DisplayName(row.FirstName, row.LastName, row.Username)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) ListTreesDueForInspection(ctx context.Context, cutoff time.Time) ([]domain.TreeRecord, error) {
	var rows []sqliteTree
	if err := r.db.SelectContext(ctx, &rows, fmt.Sprintf(selectTreesDueForInspection, "?"), cutoff.UTC().Format(sqliteTimestamp)); err != nil {
		return nil, err
	}
	out := make([]domain.TreeRecord, 0, len(rows))
	for _, row := range rows {
		created, err := time.Parse(time.RFC3339, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("tree %d: parse created_at: %w", row.ID, err)
		}
		t := domain.TreeRecord{
			ID: row.ID, TagNumber: row.TagNumber, Health: row.Health, ZoneID: row.ZoneID,
			ZoneName: row.ZoneName, Species: row.Species, CreatedAt: created,
		}
		if row.LastLoggedAt.Valid {
			last, err := time.Parse(time.RFC3339, row.LastLoggedAt.String)
			if err != nil {
				return nil, fmt.Errorf("tree %d: parse logged_at: %w", row.ID, err)
			}
			t.LastInspectedAt = &last
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) ListRecipients(ctx context.Context) ([]domain.Staff, error) {
	var rows []sqliteStaff
	if err := r.db.SelectContext(ctx, &rows, selectRecipients); err != nil {
		return nil, err
	}
	staff := make([]domain.Staff, 0, len(rows))
	for _, row := range rows {
		staff = append(staff, row.toDomain())
	}
	if err := r.loadZones(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *SQLiteRepository) GetStaff(ctx context.Context, id int64) (domain.Staff, error) {
	var row sqliteStaff
	err := r.db.GetContext(ctx, &row, selectStaff+` WHERE u.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Staff{}, domain.ErrStaffNotFound
	}
	if err != nil {
		return domain.Staff{}, err
	}
	staff := []domain.Staff{row.toDomain()}
	if err := r.loadZones(ctx, staff); err != nil {
		return domain.Staff{}, err
	}
	return staff[0], nil
}

func (r *SQLiteRepository) loadZones(ctx context.Context, staff []domain.Staff) error {
	if len(staff) == 0 {
		return nil
	}
	var pairs []staffZone
	if err := r.db.SelectContext(ctx, &pairs, selectStaffZones); err != nil {
		return err
	}
	attachZones(staff, pairs)
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
)

type PostgresRepository struct{ pg *pgxpool.Pool }

func NewPostgres(pg *pgxpool.Pool) *PostgresRepository { return &PostgresRepository{pg: pg} }

func (r *PostgresRepository) ListOverdueTasks(ctx context.Context, today time.Time) ([]domain.TaskRecord, error) {
	rows, err := r.pg.Query(ctx, fmt.Sprintf(selectOverdueTasks, "$1"), today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaskRecord
	for rows.Next() {
		var (
			t                     domain.TaskRecord
			first, last, username string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.TaskType, &t.Priority, &t.ZoneID, &t.ZoneName, &t.TreeID, &t.DueDate, &first, &last, &username); err != nil {
			return nil, err
		}
		t.DueDate = dateOnly(t.DueDate)
		if username != "" {
			t.Assignee = domain.DisplayName(first, last, username)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListTreesDueForInspection(ctx context.Context, cutoff time.Time) ([]domain.TreeRecord, error) {
	rows, err := r.pg.Query(ctx, fmt.Sprintf(selectTreesDueForInspection, "$1"), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TreeRecord
	for rows.Next() {
		var t domain.TreeRecord
		if err := rows.Scan(&t.ID, &t.TagNumber, &t.Health, &t.ZoneID, &t.ZoneName, &t.Species, &t.CreatedAt, &t.LastInspectedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListRecipients(ctx context.Context) ([]domain.Staff, error) {
	rows, err := r.pg.Query(ctx, selectRecipients)
	if err != nil {
		return nil, err
	}
	staff, err := pgx.CollectRows(rows, scanStaff)
	if err != nil {
		return nil, err
	}
	if err := r.loadZones(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *PostgresRepository) GetStaff(ctx context.Context, id int64) (domain.Staff, error) {
	rows, err := r.pg.Query(ctx, selectStaff+` WHERE u.id = $1`, id)
	if err != nil {
		return domain.Staff{}, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanStaff)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Staff{}, domain.ErrStaffNotFound
	}
	if err != nil {
		return domain.Staff{}, err
	}
	staff := []domain.Staff{s}
	if err := r.loadZones(ctx, staff); err != nil {
		return domain.Staff{}, err
	}
	return staff[0], nil
}

func scanStaff(row pgx.CollectableRow) (domain.Staff, error) {
	var (
		s    domain.Staff
		role string
	)
	err := row.Scan(&s.ID, &s.Username, &s.FirstName, &s.LastName, &s.Email, &role)
	s.Role = domain.Role(role)
	return s, err
}

func (r *PostgresRepository) loadZones(ctx context.Context, staff []domain.Staff) error {
	if len(staff) == 0 {
		return nil
	}
	rows, err := r.pg.Query(ctx, selectStaffZones)
	if err != nil {
		return err
	}
	pairs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[staffZone])
	if err != nil {
		return err
	}
	attachZones(staff, pairs)
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

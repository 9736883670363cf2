package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct{ pg *pgxpool.Pool }

func NewPostgres(pg *pgxpool.Pool) *PostgresRepository { return &PostgresRepository{pg: pg} }

func (r *PostgresRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.pg.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, key string, value string, secret bool) error {
	_, err := r.pg.Exec(ctx, `
		INSERT INTO app_settings (key, value, is_secret, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, is_secret = EXCLUDED.is_secret, updated_at = now()`,
		key, value, secret)
	return err
}

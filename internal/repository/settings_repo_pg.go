package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsSource exposes the operator dashboard: a flat key/value table
// (capacity, operating days, hours, page copy, notification addresses).
type SettingsSource interface {
	ReadAll(ctx context.Context) (map[string]string, error)
}

type PGSettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) SettingsSource {
	return &PGSettingsRepository{db: db}
}

func (r *PGSettingsRepository) ReadAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}

var _ SettingsSource = (*PGSettingsRepository)(nil)

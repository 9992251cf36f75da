package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkrylov/tablebook/internal/domain"
)

// RecordStore is the tabular store the engine works against: read the full
// set, append rows, or replace the whole table. The active and archive
// stores share this interface.
type RecordStore interface {
	ReadAll(ctx context.Context) ([]domain.Record, error)
	Append(ctx context.Context, records ...domain.Record) error
	Rewrite(ctx context.Context, records []domain.Record) error
}

const (
	ActiveTable  = "reservations"
	ArchiveTable = "reservations_archive"
)

type PGRecordRepository struct {
	db    *pgxpool.Pool
	table string
}

// NewRecordRepository returns a store over the given table, which must be
// one of ActiveTable or ArchiveTable.
func NewRecordRepository(db *pgxpool.Pool, table string) RecordStore {
	return &PGRecordRepository{db: db, table: table}
}

func (r *PGRecordRepository) ReadAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT id, created_at, name, email, phone, party_size, start_at, end_at, status, comment FROM %s ORDER BY start_at, created_at`, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Name, &rec.Email, &rec.Phone, &rec.PartySize, &rec.Start, &rec.End, &rec.Status, &rec.Comment); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PGRecordRepository) Append(ctx context.Context, records ...domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.insert(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Rewrite replaces the table contents in one transaction. This backs the
// archive rotation, which is a bulk full-rewrite rather than a per-row
// delete.
func (r *PGRecordRepository) Rewrite(ctx context.Context, records []domain.Record) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table)); err != nil {
		return err
	}
	if err := r.insert(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRecordRepository) insert(ctx context.Context, tx pgx.Tx, records []domain.Record) error {
	for _, rec := range records {
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, created_at, name, email, phone, party_size, start_at, end_at, status, comment)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, r.table),
			rec.ID, created, rec.Name, rec.Email, rec.Phone, rec.PartySize, rec.Start, rec.End, rec.Status, rec.Comment); err != nil {
			return err
		}
	}
	return nil
}

var _ RecordStore = (*PGRecordRepository)(nil)

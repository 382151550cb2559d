package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type directoryRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDirectoryRepository(pool *pgxpool.Pool, logger *slog.Logger) DirectoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &directoryRepository{pool: pool, logger: logger}
}

func (r *directoryRepository) VendorIDByName(ctx context.Context, name string) (uuid.UUID, bool, error) {
	return r.idByName(ctx, "vendors", name)
}

func (r *directoryRepository) SubsidiaryIDByName(ctx context.Context, name string) (uuid.UUID, bool, error) {
	return r.idByName(ctx, "subsidiaries", name)
}

// idByName is an exact, case-sensitive match against active records only.
func (r *directoryRepository) idByName(ctx context.Context, table, name string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM `+table+` WHERE name=$1 AND NOT inactive`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		r.logger.Error("name lookup failed", "table", table, "name", name, "error", err)
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *directoryRepository) ActiveVendorNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM vendors WHERE NOT inactive ORDER BY name`)
	if err != nil {
		r.logger.Error("failed to list vendor names", "error", err)
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

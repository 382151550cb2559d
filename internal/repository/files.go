package repository

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billhound/docstage/constants"
	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
)

type fileRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewFileRepository(pool *pgxpool.Pool, logger *slog.Logger) FileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileRepository{pool: pool, logger: logger}
}

// NormalizeFileName folds case so lookup by name is exact after folding.
func NormalizeFileName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *fileRepository) IDByName(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM source_files WHERE name=$1`, NormalizeFileName(name)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		r.logger.Error("file lookup failed", "name", name, "error", err)
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *fileRepository) Save(ctx context.Context, name string, contents []byte) (*entity.SourceFile, error) {
	f := &entity.SourceFile{
		ID:         uuid.New(),
		Name:       NormalizeFileName(name),
		FileExt:    constants.NormalizeExt(filepath.Ext(name)),
		Size:       int64(len(contents)),
		UploadedAt: time.Now().UTC(),
	}
	// Re-submission of the same filename replaces the stored contents and
	// keeps the existing id so attached documents stay linked.
	err := r.pool.QueryRow(ctx, `
		INSERT INTO source_files (id, name, file_ext, size, contents, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO UPDATE
			SET contents=EXCLUDED.contents, size=EXCLUDED.size, uploaded_at=EXCLUDED.uploaded_at
		RETURNING id`,
		f.ID, f.Name, f.FileExt, f.Size, contents, f.UploadedAt).Scan(&f.ID)
	if err != nil {
		r.logger.Error("failed to save file", "name", f.Name, "error", err)
		return nil, err
	}
	return f, nil
}

func (r *fileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.SourceFile, error) {
	var f entity.SourceFile
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, file_ext, size, uploaded_at FROM source_files WHERE id=$1`, id).
		Scan(&f.ID, &f.Name, &f.FileExt, &f.Size, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load file", "id", id, "error", err)
		return nil, err
	}
	return &f, nil
}

func (r *fileRepository) Contents(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var contents []byte
	err := r.pool.QueryRow(ctx, `SELECT contents FROM source_files WHERE id=$1`, id).Scan(&contents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load file contents", "id", id, "error", err)
		return nil, err
	}
	return contents, nil
}

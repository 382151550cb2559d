package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billhound/docstage/constants"
	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
)

type stagingRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStagingRepository(pool *pgxpool.Pool, logger *slog.Logger) StagingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &stagingRepository{pool: pool, logger: logger}
}

const stagingColumns = `
	id, file_name, external_updated_at, document_number, subsidiary_id,
	vendor_id, transaction_type, process_status, transaction_status,
	transaction_date, total_amount, tax_amount, memo, email_body_html,
	source_file_id, extraction_file_id, lines, lines_json, review_note,
	system_alert, inactive, created_at, updated_at`

func (r *stagingRepository) Create(ctx context.Context, doc *entity.StagingDocument) (*entity.StagingDocument, error) {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return nil, common.WrapError(err, "encode lines")
	}
	doc.ID = uuid.New()
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	_, err = r.pool.Exec(ctx, `
		INSERT INTO staging_documents (`+stagingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		doc.ID, doc.FileName, doc.ExternalUpdatedAt, doc.DocumentNumber, doc.SubsidiaryID,
		doc.VendorID, doc.TransactionType, string(doc.ProcessStatus), doc.TransactionStatus,
		doc.TransactionDate, doc.TotalAmount, doc.TaxAmount, doc.Memo, doc.EmailBodyHTML,
		doc.SourceFileID, doc.ExtractionFileID, lines, doc.LinesJSON, doc.ReviewNote,
		doc.SystemAlert, doc.Inactive, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create staging document", "file_name", doc.FileName, "error", err)
		return nil, err
	}
	return doc, nil
}

func (r *stagingRepository) Update(ctx context.Context, doc *entity.StagingDocument) error {
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return common.WrapError(err, "encode lines")
	}
	doc.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE staging_documents SET
			file_name=$2, external_updated_at=$3, document_number=$4, subsidiary_id=$5,
			vendor_id=$6, transaction_type=$7, process_status=$8, transaction_status=$9,
			transaction_date=$10, total_amount=$11, tax_amount=$12, memo=$13,
			email_body_html=$14, source_file_id=$15, extraction_file_id=$16, lines=$17,
			lines_json=$18, review_note=$19, system_alert=$20, inactive=$21, updated_at=$22
		WHERE id=$1`,
		doc.ID, doc.FileName, doc.ExternalUpdatedAt, doc.DocumentNumber, doc.SubsidiaryID,
		doc.VendorID, doc.TransactionType, string(doc.ProcessStatus), doc.TransactionStatus,
		doc.TransactionDate, doc.TotalAmount, doc.TaxAmount, doc.Memo, doc.EmailBodyHTML,
		doc.SourceFileID, doc.ExtractionFileID, lines, doc.LinesJSON,
		doc.ReviewNote, doc.SystemAlert, doc.Inactive, doc.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to update staging document", "id", doc.ID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *stagingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.StagingDocument, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+stagingColumns+` FROM staging_documents WHERE id=$1`, id)
	doc, err := scanStagingDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load staging document", "id", id, "error", err)
		return nil, err
	}
	return doc, nil
}

func (r *stagingRepository) CandidatesByFileID(ctx context.Context, fileID uuid.UUID) ([]*entity.StagingDocument, error) {
	return r.query(ctx, `
		SELECT `+stagingColumns+` FROM staging_documents
		WHERE source_file_id=$1 AND NOT inactive AND process_status <> $2
		ORDER BY updated_at DESC`, fileID, string(constants.StatusTransactionComplete))
}

func (r *stagingRepository) ListPending(ctx context.Context) ([]*entity.StagingDocument, error) {
	return r.query(ctx, `
		SELECT `+stagingColumns+` FROM staging_documents
		WHERE NOT inactive AND process_status <> $1
		ORDER BY created_at`, string(constants.StatusTransactionComplete))
}

func (r *stagingRepository) ActiveByDocumentNumber(ctx context.Context, number string) ([]*entity.StagingDocument, error) {
	return r.query(ctx, `
		SELECT `+stagingColumns+` FROM staging_documents
		WHERE document_number=$1 AND NOT inactive AND process_status <> $2
		ORDER BY updated_at DESC`, number, string(constants.StatusTransactionComplete))
}

func (r *stagingRepository) SetSystemAlert(ctx context.Context, id uuid.UUID, alert string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staging_documents SET system_alert=$2, updated_at=now() WHERE id=$1`, id, alert)
	if err != nil {
		r.logger.Error("failed to set system alert", "id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *stagingRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staging_documents SET inactive=true, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		r.logger.Error("failed to deactivate staging document", "id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *stagingRepository) query(ctx context.Context, sql string, args ...any) ([]*entity.StagingDocument, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error("staging document query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.StagingDocument
	for rows.Next() {
		doc, err := scanStagingDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStagingDocument(row rowScanner) (*entity.StagingDocument, error) {
	var (
		doc    entity.StagingDocument
		status string
		lines  []byte
	)
	err := row.Scan(
		&doc.ID, &doc.FileName, &doc.ExternalUpdatedAt, &doc.DocumentNumber, &doc.SubsidiaryID,
		&doc.VendorID, &doc.TransactionType, &status, &doc.TransactionStatus,
		&doc.TransactionDate, &doc.TotalAmount, &doc.TaxAmount, &doc.Memo, &doc.EmailBodyHTML,
		&doc.SourceFileID, &doc.ExtractionFileID, &lines, &doc.LinesJSON, &doc.ReviewNote,
		&doc.SystemAlert, &doc.Inactive, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.ProcessStatus = constants.ProcessStatus(status)
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &doc.Lines); err != nil {
			return nil, common.WrapError(err, "decode lines")
		}
	}
	return &doc, nil
}

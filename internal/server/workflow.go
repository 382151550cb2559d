package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/billhound/docstage/constants"
	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/duplicates"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/extraction"
	"github.com/billhound/docstage/internal/mapper"
	"github.com/billhound/docstage/internal/promotion"
	"github.com/billhound/docstage/internal/repository"
	"github.com/billhound/docstage/internal/resolver"
)

// Workflow runs the capture pipeline: decode an extraction payload, map it
// onto staging fields, resolve create-vs-update, and persist. It also owns
// the lifecycle actions a reviewer takes afterwards.
type Workflow struct {
	staging  repository.StagingRepository
	files    repository.FileRepository
	mapper   *mapper.Mapper
	resolver *resolver.Resolver
	gate     *promotion.Gate
	logger   *slog.Logger
}

func NewWorkflow(
	staging repository.StagingRepository,
	files repository.FileRepository,
	m *mapper.Mapper,
	r *resolver.Resolver,
	gate *promotion.Gate,
	logger *slog.Logger,
) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		staging:  staging,
		files:    files,
		mapper:   m,
		resolver: r,
		gate:     gate,
		logger:   logger,
	}
}

// SubmitResult reports what one extraction submission did.
type SubmitResult struct {
	Document *entity.StagingDocument
	Created  bool
}

// Submit handles one inbound extraction payload end to end. Resubmission of
// the same filename updates the existing staged document in place instead
// of creating a sibling; only a resolver miss creates a new record.
func (w *Workflow) Submit(ctx context.Context, raw []byte) (*SubmitResult, error) {
	payload, err := extraction.Decode(raw, w.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	mapping, err := w.mapper.Map(ctx, payload)
	if err != nil {
		return nil, err
	}

	// Store the source file first so the resolver's filename lookup sees
	// it. A failed store degrades to a record without an attachment rather
	// than failing the submission.
	var sourceFileID *uuid.UUID
	if len(mapping.FileContents) > 0 {
		sf, err := w.files.Save(ctx, mapping.FileName, mapping.FileContents)
		if err != nil {
			w.logger.Error("workflow.file_store_failed", "file_name", mapping.FileName, "error", err)
		} else {
			sourceFileID = &sf.ID
		}
	}

	// Keep the raw extraction JSON next to the source file so a reviewer can
	// audit exactly what the vendor sent. Resubmits replace the contents
	// under the same id.
	var extractionFileID *uuid.UUID
	if ef, err := w.files.Save(ctx, mapping.FileName+".extraction.json", raw); err != nil {
		w.logger.Error("workflow.extraction_store_failed", "file_name", mapping.FileName, "error", err)
	} else {
		extractionFileID = &ef.ID
	}

	target := w.resolver.ResolveTarget(ctx, mapping.FileName, payload.BillNumber)
	if target == nil {
		doc := &entity.StagingDocument{
			FileName:         repository.NormalizeFileName(mapping.FileName),
			ProcessStatus:    constants.StatusPending,
			SourceFileID:     sourceFileID,
			ExtractionFileID: extractionFileID,
		}
		mapping.ApplyTo(doc)
		doc.ProcessStatus = constants.StatusProcessingComplete
		created, err := w.staging.Create(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("create staging document: %w", err)
		}
		w.logger.Info("workflow.submit.created",
			"document_id", created.ID, "file_name", created.FileName,
			"document_number", created.DocumentNumber)
		return &SubmitResult{Document: created, Created: true}, nil
	}

	doc, err := w.staging.GetByID(ctx, *target)
	if err != nil {
		// The resolved record vanished between search and load. Fall back
		// to creating; a duplicate beats losing the submission.
		w.logger.Error("workflow.submit.load_failed", "document_id", *target, "error", err)
		doc = &entity.StagingDocument{
			FileName:         repository.NormalizeFileName(mapping.FileName),
			ProcessStatus:    constants.StatusPending,
			SourceFileID:     sourceFileID,
			ExtractionFileID: extractionFileID,
		}
		mapping.ApplyTo(doc)
		doc.ProcessStatus = constants.StatusProcessingComplete
		created, err := w.staging.Create(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("create staging document: %w", err)
		}
		return &SubmitResult{Document: created, Created: true}, nil
	}

	mapping.ApplyTo(doc)
	if sourceFileID != nil {
		doc.SourceFileID = sourceFileID
	}
	if extractionFileID != nil {
		doc.ExtractionFileID = extractionFileID
	}
	if doc.ProcessStatus.CanAdvanceTo(constants.StatusProcessingComplete) {
		doc.ProcessStatus = constants.StatusProcessingComplete
	}
	if err := w.staging.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update staging document: %w", err)
	}
	w.logger.Info("workflow.submit.updated",
		"document_id", doc.ID, "file_name", doc.FileName,
		"document_number", doc.DocumentNumber)
	return &SubmitResult{Document: doc, Created: false}, nil
}

// Reject deactivates a staged document. When the rejected record shared a
// business document number with exactly one surviving active record, the
// survivor's duplicate alert is cleared; rejecting one half of a duplicate
// pair should un-flag the other.
func (w *Workflow) Reject(ctx context.Context, id uuid.UUID) error {
	doc, err := w.staging.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := w.staging.Deactivate(ctx, id); err != nil {
		return err
	}
	w.logger.Info("workflow.reject", "document_id", id, "document_number", doc.DocumentNumber)

	if !common.IsPresent(doc.DocumentNumber) {
		return nil
	}
	siblings, err := w.staging.ActiveByDocumentNumber(ctx, doc.DocumentNumber)
	if err != nil {
		// Alert cleanup is best-effort; the rejection itself already took.
		w.logger.Error("workflow.reject.sibling_lookup_failed",
			"document_number", doc.DocumentNumber, "error", err)
		return nil
	}
	if len(siblings) == 1 && siblings[0].SystemAlert == duplicates.AlertDuplicate {
		if err := w.staging.SetSystemAlert(ctx, siblings[0].ID, ""); err != nil {
			w.logger.Error("workflow.reject.clear_alert_failed",
				"document_id", siblings[0].ID, "error", err)
		}
	}
	return nil
}

// Promote runs the save-time gate and, on success, marks the document
// promoted. skipValidation bypasses the gate for this save only, for
// programmatic re-saves right after a validated save.
func (w *Workflow) Promote(ctx context.Context, id uuid.UUID, skipValidation bool) (*entity.StagingDocument, error) {
	doc, err := w.staging.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.ProcessStatus.CanAdvanceTo(constants.StatusTransactionComplete) {
		return nil, fmt.Errorf("%w: document %s cannot be promoted from status %s",
			common.ErrInvalidInput, id, doc.ProcessStatus)
	}
	if err := w.gate.Validate(doc, skipValidation); err != nil {
		return nil, err
	}
	doc.ProcessStatus = constants.StatusTransactionComplete
	if err := w.staging.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update staging document: %w", err)
	}
	w.logger.Info("workflow.promote", "document_id", id)
	return doc, nil
}

// Worklist returns every pending staged document annotated with the
// duplicate and missing-number alerts. Annotation happens at read time; the
// stored alert only changes through FlagDuplicates.
func (w *Workflow) Worklist(ctx context.Context) ([]*entity.StagingDocument, error) {
	recs, err := w.staging.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worklist: %w", err)
	}
	flags := duplicates.Aggregate(recs, w.logger)
	for _, r := range recs {
		if alert, ok := flags.Alert(r.ID); ok {
			r.SystemAlert = alert
		}
	}
	return recs, nil
}

// FlagDuplicates persists the aggregator's findings onto the records so
// list views rendered elsewhere see them too. Alerts this run no longer
// produces are cleared; reviewer-entered notes are untouched.
func (w *Workflow) FlagDuplicates(ctx context.Context) (int, error) {
	recs, err := w.staging.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list worklist: %w", err)
	}
	flags := duplicates.Aggregate(recs, w.logger)

	flagged := 0
	for _, r := range recs {
		alert, ok := flags.Alert(r.ID)
		switch {
		case ok && r.SystemAlert != alert:
			if err := w.staging.SetSystemAlert(ctx, r.ID, alert); err != nil {
				w.logger.Error("workflow.flag_duplicates.set_failed", "document_id", r.ID, "error", err)
				continue
			}
			flagged++
		case ok:
			flagged++
		case !ok && (r.SystemAlert == duplicates.AlertDuplicate || r.SystemAlert == duplicates.AlertMissingNumber):
			if err := w.staging.SetSystemAlert(ctx, r.ID, ""); err != nil {
				w.logger.Error("workflow.flag_duplicates.clear_failed", "document_id", r.ID, "error", err)
			}
		}
	}
	return flagged, nil
}

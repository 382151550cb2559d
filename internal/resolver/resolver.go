// Package resolver decides whether an incoming extraction updates an
// existing staging document or creates a new one. Filename alone is not a
// reliable key (the OCR vendor resubmits files on re-approval), so the
// resolver layers progressively stronger signals: business document number,
// then recency.
package resolver

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/repository"
)

type Resolver struct {
	staging repository.StagingRepository
	files   repository.FileRepository
	logger  *slog.Logger
}

func New(staging repository.StagingRepository, files repository.FileRepository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{staging: staging, files: files, logger: logger}
}

// ResolveTarget returns the id of the staging document an incoming
// submission for fileName should update, or nil when the caller should
// create a new one. Any lookup failure is logged and treated as "no match":
// creating a duplicate beats failing the whole submission.
func (r *Resolver) ResolveTarget(ctx context.Context, fileName, documentNumber string) *uuid.UUID {
	fileID, found, err := r.files.IDByName(ctx, fileName)
	if err != nil {
		r.logger.Error("resolver.file_lookup_failed", "file_name", fileName, "error", err)
		return nil
	}
	if !found {
		return nil
	}

	candidates, err := r.staging.CandidatesByFileID(ctx, fileID)
	if err != nil {
		r.logger.Error("resolver.candidate_search_failed", "file_name", fileName, "file_id", fileID, "error", err)
		return nil
	}

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		id := candidates[0].ID
		return &id
	}

	r.logger.Warn("resolver.multiple_candidates",
		"file_name", fileName, "count", len(candidates), "document_number", documentNumber)
	pick := tieBreak(candidates, documentNumber)
	return &pick
}

// tieBreak applies the deterministic policy for multiple candidates:
// a unique document-number match wins, otherwise the most recently modified
// candidate does. Equal timestamps fall back to the first seen, which is
// acceptable for a best-effort heuristic.
func tieBreak(candidates []*entity.StagingDocument, documentNumber string) uuid.UUID {
	if documentNumber != "" {
		var match *entity.StagingDocument
		matches := 0
		for _, c := range candidates {
			if c.DocumentNumber == documentNumber {
				matches++
				match = c
			}
		}
		if matches == 1 {
			return match.ID
		}
	}

	newest := candidates[0]
	for _, c := range candidates[1:] {
		if c.UpdatedAt.After(newest.UpdatedAt) {
			newest = c
		}
	}
	return newest.ID
}

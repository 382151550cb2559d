package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/billhound/docstage/internal/entity"
)

// StagingRepository persists staging documents.
type StagingRepository interface {
	Create(ctx context.Context, doc *entity.StagingDocument) (*entity.StagingDocument, error)
	Update(ctx context.Context, doc *entity.StagingDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StagingDocument, error)
	// CandidatesByFileID returns active documents attached to the given
	// source file that have not reached the terminal status.
	CandidatesByFileID(ctx context.Context, fileID uuid.UUID) ([]*entity.StagingDocument, error)
	// ListPending returns all active, non-terminal documents for the review
	// worklist and the duplicate-listing pass.
	ListPending(ctx context.Context) ([]*entity.StagingDocument, error)
	// ActiveByDocumentNumber finds active, non-terminal documents sharing a
	// business document number. Used to clear the duplicate alert off a
	// surviving sibling when its pair is rejected.
	ActiveByDocumentNumber(ctx context.Context, number string) ([]*entity.StagingDocument, error)
	SetSystemAlert(ctx context.Context, id uuid.UUID, alert string) error
	// Deactivate soft-deletes a document. Staging documents are never hard
	// deleted.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// FileRepository is the dedicated files area where source documents and raw
// extraction blobs live.
type FileRepository interface {
	// IDByName looks up a file by exact, case-normalized name.
	IDByName(ctx context.Context, name string) (uuid.UUID, bool, error)
	Save(ctx context.Context, name string, contents []byte) (*entity.SourceFile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SourceFile, error)
	Contents(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// DirectoryRepository resolves human-readable master-data names to internal
// references. Lookups are exact and case-sensitive against active records.
type DirectoryRepository interface {
	VendorIDByName(ctx context.Context, name string) (uuid.UUID, bool, error)
	ActiveVendorNames(ctx context.Context) ([]string, error)
	SubsidiaryIDByName(ctx context.Context, name string) (uuid.UUID, bool, error)
}

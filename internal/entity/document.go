package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billhound/docstage/constants"
)

// StagingDocument represents a captured document for data transfer between layers.
// At most one active, non-terminal document should exist per source filename;
// the resolver enforces this best-effort at write time.
type StagingDocument struct {
	ID                uuid.UUID               `json:"id"`
	FileName          string                  `json:"file_name"`
	ExternalUpdatedAt *time.Time              `json:"external_updated_at,omitempty"`
	DocumentNumber    string                  `json:"document_number"`
	SubsidiaryID      *uuid.UUID              `json:"subsidiary_id,omitempty"`
	VendorID          *uuid.UUID              `json:"vendor_id,omitempty"`
	TransactionType   string                  `json:"transaction_type"`
	ProcessStatus     constants.ProcessStatus `json:"process_status"`
	TransactionStatus string                  `json:"transaction_status"`
	TransactionDate   *time.Time              `json:"transaction_date,omitempty"`
	TotalAmount       *decimal.Decimal        `json:"total_amount,omitempty"` // tax-inclusive
	TaxAmount         *decimal.Decimal        `json:"tax_amount,omitempty"`
	Memo              string                  `json:"memo"`
	EmailBodyHTML     string                  `json:"email_body_html,omitempty"`
	SourceFileID      *uuid.UUID              `json:"source_file_id,omitempty"`
	ExtractionFileID  *uuid.UUID              `json:"extraction_file_id,omitempty"`
	Lines             []LineItem              `json:"lines"`
	LinesJSON         string                  `json:"lines_json,omitempty"` // raw extraction audit blob
	ReviewNote        string                  `json:"review_note,omitempty"`
	SystemAlert       string                  `json:"system_alert,omitempty"`
	Inactive          bool                    `json:"inactive"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// LineItem is one row of the document's repeating line collection.
type LineItem struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Category    string           `json:"category"`
	Department  string           `json:"department,omitempty"`
	Location    string           `json:"location,omitempty"`
	Class       string           `json:"class,omitempty"`
}

// SourceFile is an attachment in the dedicated files area. Names are
// case-normalized on write so filename lookup is exact after folding.
type SourceFile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	FileExt    string    `json:"file_ext"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Package mapper translates an external field-extraction payload into writes
// against the normalized staging document schema.
package mapper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/dateparse"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/money"
	"github.com/billhound/docstage/internal/repository"
)

// headerMap is the static mapping from external extraction keys to internal
// header field identifiers. Keys absent from an incoming payload are never
// written, so re-submission cannot null out fields an earlier submission
// populated.
var headerMap = map[string]string{
	"vendor_name":          "vendor",
	"Subsidiary":           "subsidiary",
	"BillNumber":           "documentnumber",
	"totaltax":             "taxamount",
	"total_amount":         "totalamount",
	"transaction_type":     "transactiontype",
	"memo":                 "memo",
	"email_body":           "emailbody",
	"nanonets_uploaded_at": "externalupdatedat",
}

// Mapping is the outcome of mapping one payload: ordered header writes, the
// wholesale line replacement, and the decoded source file.
type Mapping struct {
	Header       []Write
	Lines        []entity.LineItem
	LinesJSON    string
	FileName     string
	FileContents []byte
	// ReviewNote carries "vendor not found"-class findings for the reviewer;
	// the mapper itself never fails on them.
	ReviewNote string
}

// Write is one header field assignment.
type Write struct {
	Field string
	Value any
}

type Mapper struct {
	directory repository.DirectoryRepository
	logger    *slog.Logger
}

func New(directory repository.DirectoryRepository, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{directory: directory, logger: logger}
}

// Map translates a payload into a Mapping. Lookups that resolve to nothing
// leave the field unset and surface as review notes; nothing here raises a
// user-visible error.
func (m *Mapper) Map(ctx context.Context, p *entity.ExtractionPayload) (*Mapping, error) {
	out := &Mapping{FileName: p.FirstFileName()}

	if common.IsPresent(p.VendorName) {
		id, found, err := m.directory.VendorIDByName(ctx, p.VendorName)
		if err != nil {
			m.logger.Error("mapper.vendor_lookup_failed", "vendor_name", p.VendorName, "error", err)
		} else if found {
			out.Header = append(out.Header, Write{Field: headerMap["vendor_name"], Value: id})
		} else {
			out.ReviewNote = m.vendorNotFoundNote(ctx, p.VendorName)
		}
	}
	if common.IsPresent(p.Subsidiary) {
		id, found, err := m.directory.SubsidiaryIDByName(ctx, p.Subsidiary)
		if err != nil {
			m.logger.Error("mapper.subsidiary_lookup_failed", "subsidiary", p.Subsidiary, "error", err)
		} else if found {
			out.Header = append(out.Header, Write{Field: headerMap["Subsidiary"], Value: id})
		}
	}
	if common.IsPresent(p.BillNumber) {
		out.Header = append(out.Header, Write{Field: headerMap["BillNumber"], Value: p.BillNumber})
	}
	if common.IsPresent(p.TransactionTyp) {
		out.Header = append(out.Header, Write{Field: headerMap["transaction_type"], Value: p.TransactionTyp})
	}
	if common.IsPresent(p.Memo) {
		out.Header = append(out.Header, Write{Field: headerMap["memo"], Value: p.Memo})
	}
	if common.IsPresent(p.EmailBody) {
		out.Header = append(out.Header, Write{Field: headerMap["email_body"], Value: p.EmailBody})
	}
	if common.IsPresent(p.UploadedAt) {
		if t, ok := parseExternalTimestamp(p.UploadedAt); ok {
			out.Header = append(out.Header, Write{Field: headerMap["nanonets_uploaded_at"], Value: t})
		}
	}

	// Tax-inclusive total: only when both parts are present and numeric.
	// Anything less keeps the stored amount as-is.
	if p.TotalAmount != nil && p.TotalTax != nil {
		total := decimal.NewFromFloat(*p.TotalAmount).Add(decimal.NewFromFloat(*p.TotalTax))
		tax := decimal.NewFromFloat(*p.TotalTax)
		out.Header = append(out.Header,
			Write{Field: headerMap["total_amount"], Value: total},
			Write{Field: headerMap["totaltax"], Value: tax})
	}

	out.Lines = mapLines(p.Items)
	if b, err := json.Marshal(p.Items); err == nil {
		out.LinesJSON = string(b)
	}

	if len(p.OriginalFile) > 0 && p.OriginalFile[0].Contents != "" {
		contents, err := base64.StdEncoding.DecodeString(p.OriginalFile[0].Contents)
		if err != nil {
			m.logger.Warn("mapper.bad_file_encoding", "file_name", out.FileName, "error", err)
		} else {
			out.FileContents = contents
		}
	}
	return out, nil
}

// ApplyTo merges the mapping onto a staging document. Only mapped fields are
// touched; lines are replaced wholesale with the latest extraction's set.
func (out *Mapping) ApplyTo(doc *entity.StagingDocument) {
	for _, w := range out.Header {
		applyHeaderWrite(doc, w)
	}
	if out.Lines != nil {
		doc.Lines = out.Lines
	}
	if out.LinesJSON != "" {
		doc.LinesJSON = out.LinesJSON
	}
	if out.ReviewNote != "" {
		doc.ReviewNote = out.ReviewNote
	}
	if doc.FileName == "" {
		doc.FileName = out.FileName
	}
}

func applyHeaderWrite(doc *entity.StagingDocument, w Write) {
	switch w.Field {
	case "vendor":
		if id, ok := w.Value.(uuid.UUID); ok {
			doc.VendorID = &id
		}
	case "subsidiary":
		if id, ok := w.Value.(uuid.UUID); ok {
			doc.SubsidiaryID = &id
		}
	case "documentnumber":
		doc.DocumentNumber = w.Value.(string)
	case "transactiontype":
		doc.TransactionType = w.Value.(string)
	case "memo":
		doc.Memo = w.Value.(string)
	case "emailbody":
		doc.EmailBodyHTML = w.Value.(string)
	case "externalupdatedat":
		if t, ok := w.Value.(time.Time); ok {
			doc.ExternalUpdatedAt = &t
		}
	case "totalamount":
		if d, ok := w.Value.(decimal.Decimal); ok {
			doc.TotalAmount = &d
		}
	case "taxamount":
		if d, ok := w.Value.(decimal.Decimal); ok {
			doc.TaxAmount = &d
		}
	}
}

func mapLines(items []entity.ExtractionItem) []entity.LineItem {
	lines := make([]entity.LineItem, 0, len(items))
	for _, it := range items {
		line := entity.LineItem{Description: it.Description}
		if d, ok := money.ParseAny(it.LineAmount); ok {
			line.Amount = &d
		}
		if d, ok := money.ParseAny(it.UnitPrice); ok {
			line.UnitPrice = &d
		}
		if d, ok := money.ParseAny(it.Quantity); ok {
			line.Quantity = &d
		}
		lines = append(lines, line)
	}
	return lines
}

// parseExternalTimestamp accepts the vendor's RFC 3339 timestamps, falling
// back to loose date parsing for date-only values.
func parseExternalTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return dateparse.Parse(s)
}

// vendorNotFoundNote builds the reviewer-facing note, including the closest
// active vendor name when one is plausibly near.
func (m *Mapper) vendorNotFoundNote(ctx context.Context, name string) string {
	note := "Vendor \"" + name + "\" not found"
	names, err := m.directory.ActiveVendorNames(ctx)
	if err != nil || len(names) == 0 {
		return note
	}
	best, bestDist := "", -1
	for _, candidate := range names {
		d := levenshtein.ComputeDistance(name, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	// only suggest near misses; a distance beyond a third of the name is noise
	if bestDist >= 0 && bestDist <= len(name)/3 {
		return note + "; did you mean \"" + best + "\"?"
	}
	return note
}

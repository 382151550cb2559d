// Package duplicates flags cross-record problems in the pending worklist:
// two staged documents sharing one business document number, and documents
// with no number at all. Detection runs after the fact; the capture path
// deliberately tolerates duplicate submissions rather than blocking them.
package duplicates

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
)

// Alert texts shown on worklist rows. The missing-number alert asks for
// the one action that would make duplicate detection possible for that
// record, so it takes precedence over membership in any duplicate set.
const (
	AlertDuplicate     = "Duplicate document number detected, please review"
	AlertMissingNumber = "Please enter a document number"
)

// Flags is the aggregation result keyed by staging document id.
type Flags struct {
	// Duplicates holds the ids whose document number occurs on more than
	// one pending record.
	Duplicates map[uuid.UUID]string
	// MissingNumber holds the ids with no document number at all.
	MissingNumber map[uuid.UUID]string
}

// Alert returns the alert text for a record, if any. A record is never in
// both sets.
func (f Flags) Alert(id uuid.UUID) (string, bool) {
	if msg, ok := f.MissingNumber[id]; ok {
		return msg, true
	}
	msg, ok := f.Duplicates[id]
	return msg, ok
}

// DuplicateKeys returns the set of document numbers occurring more than
// once, for callers that want the keys rather than per-record alerts.
func DuplicateKeys(records []*entity.StagingDocument) map[string]struct{} {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		if key := normalizeKey(r.DocumentNumber); key != "" {
			counts[key]++
		}
	}
	keys := make(map[string]struct{})
	for key, n := range counts {
		if n > 1 {
			keys[key] = struct{}{}
		}
	}
	return keys
}

// Aggregate walks the pending worklist once and assigns each record to at
// most one flag set.
func Aggregate(records []*entity.StagingDocument, logger *slog.Logger) Flags {
	if logger == nil {
		logger = slog.Default()
	}
	flags := Flags{
		Duplicates:    make(map[uuid.UUID]string),
		MissingNumber: make(map[uuid.UUID]string),
	}
	dupKeys := DuplicateKeys(records)
	for _, r := range records {
		if !common.IsPresent(r.DocumentNumber) {
			flags.MissingNumber[r.ID] = AlertMissingNumber
			continue
		}
		if _, dup := dupKeys[normalizeKey(r.DocumentNumber)]; dup {
			flags.Duplicates[r.ID] = AlertDuplicate
		}
	}
	if len(flags.Duplicates) > 0 || len(flags.MissingNumber) > 0 {
		logger.Info("duplicates.aggregate",
			"records", len(records),
			"duplicate_flags", len(flags.Duplicates),
			"missing_number_flags", len(flags.MissingNumber))
	}
	return flags
}

func normalizeKey(number string) string {
	return strings.TrimSpace(number)
}

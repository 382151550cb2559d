// Package promotion holds the save-time validation gate a staged document
// must clear before it can become a downstream transaction.
package promotion

import (
	"fmt"
	"log/slog"

	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/forms"
)

// ValidationError reports the first line that fails the gate. Line is
// 1-based because the message is shown to a person looking at a form.
type ValidationError struct {
	Line    int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// Gate validates a staged document before promotion. The zero value is not
// usable; construct with NewGate. A Gate carries no per-save state and is
// safe for concurrent use.
type Gate struct {
	schema *forms.Schema
	logger *slog.Logger
}

func NewGate(schema *forms.Schema, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{schema: schema, logger: logger}
}

// Validate checks that every line of the document carries a category. It
// returns nil when the gate passes, a *ValidationError naming the first
// offending line when data is incomplete, and a not-configured error when
// the form has no line collection to validate at all. Those two failures
// are distinct: one is fixed by the reviewer, the other by an
// administrator. skip bypasses the check for this one save, so a
// programmatic re-save right after a validated save does not prompt the
// user twice; it applies to this call only and never carries over to
// another save.
func (g *Gate) Validate(doc *entity.StagingDocument, skip bool) error {
	if skip {
		g.logger.Info("promotion.validate.skipped", "document_id", doc.ID)
		return nil
	}

	if g.schema == nil || !g.schema.HasLineCollection() {
		return fmt.Errorf("%w: line collection is not configured on the form", common.ErrNotConfigured)
	}
	if len(doc.Lines) == 0 {
		return fmt.Errorf("%w: document has no lines to validate", common.ErrNotConfigured)
	}

	for i, line := range doc.Lines {
		if !common.IsPresent(line.Category) {
			g.logger.Info("promotion.validate.failed",
				"document_id", doc.ID, "line", i+1)
			return &ValidationError{
				Line:    i + 1,
				Message: fmt.Sprintf("Please assign a category to line %d before saving", i+1),
			}
		}
	}
	return nil
}

// Package review drives the split-screen review session: which form field
// has focus, what text the user has selected on the source document, and how
// that text lands on the staged record.
package review

import (
	"log/slog"
	"strings"
	"time"

	"github.com/billhound/docstage/internal/dateparse"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/forms"
	"github.com/billhound/docstage/internal/money"
)

// State enumerates the session's interaction states.
type State int

const (
	Idle State = iota
	FieldFocused
	PendingBind
)

// Session is the per-review interactive state. It is confined to one review
// of one staging document and is never persisted.
type Session struct {
	schema     *forms.Schema
	doc        *entity.StagingDocument
	dateFormat string
	logger     *slog.Logger

	state        State
	activeField  string
	selectedLine int // index into doc.Lines, -1 when no line is selected
	pending      string
	hovered      *Fragment

	// history keeps the literal source text last bound per field, so
	// re-focusing a field can re-highlight its provenance.
	history     map[string]string
	highlighted string
}

func NewSession(schema *forms.Schema, doc *entity.StagingDocument, dateFormat string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		schema:       schema,
		doc:          doc,
		dateFormat:   dateFormat,
		logger:       logger,
		selectedLine: -1,
		history:      make(map[string]string),
	}
}

func (s *Session) State() State          { return s.state }
func (s *Session) ActiveField() string   { return s.activeField }
func (s *Session) SelectedLine() int     { return s.selectedLine }
func (s *Session) Document() *entity.StagingDocument { return s.doc }

// FocusField records the field as the active bind target. Fields on the
// ignore-list never become targets, so stray clicks cannot clobber manual
// entry in them.
func (s *Session) FocusField(id string) {
	f, ok := s.schema.Lookup(id)
	if !ok || f.IgnoreFocus || f.Kind == forms.KindLineRef {
		return
	}
	s.activeField = id
	s.state = FieldFocused
	if prev, ok := s.history[id]; ok {
		s.Highlight(prev)
	}
}

// Blur drops focus and returns the session to Idle.
func (s *Session) Blur() {
	s.activeField = ""
	s.pending = ""
	s.state = Idle
}

// SelectLine marks a line of the repeating collection as current. Out of
// range indexes clear the selection.
func (s *Session) SelectLine(i int) {
	if i < 0 || i >= len(s.doc.Lines) {
		s.selectedLine = -1
		return
	}
	s.selectedLine = i
}

// Hover tracks the text fragment under the pointer; a plain click binds it.
func (s *Session) Hover(f Fragment) {
	s.hovered = &f
}

// CaptureDrag captures the text under a drag rectangle as the pending bind.
func (s *Session) CaptureDrag(frags []Fragment, sel Rect) {
	if s.state == Idle {
		return
	}
	text := ExtractSelection(frags, sel)
	if text == "" {
		return
	}
	s.pending = text
	s.state = PendingBind
}

// CaptureClick uses the last hovered fragment as a single-token selection.
func (s *Session) CaptureClick() {
	if s.state == Idle || s.hovered == nil {
		return
	}
	s.pending = s.hovered.Text
	s.state = PendingBind
}

// ApplyBind coerces the pending text by the active field's kind and writes
// it to the header or to the currently selected line. A date that fails to
// parse aborts the bind and leaves the field untouched.
func (s *Session) ApplyBind() bool {
	if s.state != PendingBind || s.activeField == "" {
		return false
	}
	raw := s.pending
	s.pending = ""
	s.state = FieldFocused

	f, ok := s.schema.Lookup(s.activeField)
	if !ok {
		s.logger.Warn("review.bind.unknown_field", "field", s.activeField)
		return false
	}

	value, when, ok := s.coerce(f.Kind, raw)
	if !ok {
		return false
	}

	// Field resolution: a currently selected line of the primary collection
	// takes the write when the target is a line column; otherwise the write
	// goes to the document header.
	if f.LineColumn && s.selectedLine >= 0 {
		s.writeLine(f, value)
	} else if f.LineColumn {
		s.logger.Warn("review.bind.no_line_selected", "field", f.ID)
		return false
	} else {
		s.writeHeader(f, value, when)
	}

	s.history[f.ID] = raw
	s.Highlight(raw)
	return true
}

// coerce converts captured text per field kind. Plain text is trimmed,
// currency text has a leading symbol and separators stripped, dates go
// through the normalizer and come back in the site's display format. The
// parsed time rides alongside so the document write never re-reads an
// ambiguous display string.
func (s *Session) coerce(kind forms.FieldKind, raw string) (string, *time.Time, bool) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	switch kind {
	case forms.KindDate:
		t, ok := dateparse.Parse(text)
		if !ok {
			s.logger.Warn("review.bind.date_parse_failed", "text", text)
			return "", nil, false
		}
		return dateparse.Format(t, s.dateFormat), &t, true
	case forms.KindCurrency:
		return money.StripSymbol(text), nil, true
	default:
		return text, nil, true
	}
}

func (s *Session) writeHeader(f forms.Field, value string, when *time.Time) {
	switch f.ID {
	case "documentnumber":
		s.doc.DocumentNumber = value
	case "memo":
		s.doc.Memo = value
	case "transactiondate":
		if when != nil {
			s.doc.TransactionDate = when
		} else if t, ok := dateparse.Parse(value); ok {
			s.doc.TransactionDate = &t
		}
	case "taxamount":
		if d, ok := money.Parse(value); ok {
			s.doc.TaxAmount = &d
		}
	case "totalamount":
		if d, ok := money.Parse(value); ok {
			s.doc.TotalAmount = &d
		}
	case "department", "location", "class":
		s.fanOut(f.ID, value)
	default:
		s.logger.Warn("review.bind.unroutable_header_field", "field", f.ID)
	}
}

func (s *Session) writeLine(f forms.Field, value string) {
	line := &s.doc.Lines[s.selectedLine]
	switch f.ID {
	case "description":
		line.Description = value
	case "lineamount":
		if d, ok := money.Parse(value); ok {
			line.Amount = &d
		}
	case "unitprice":
		if d, ok := money.Parse(value); ok {
			line.UnitPrice = &d
		}
	case "quantity":
		if d, ok := money.Parse(value); ok {
			line.Quantity = &d
		}
	case "category":
		line.Category = value
	default:
		s.logger.Warn("review.bind.unroutable_line_field", "field", f.ID)
	}
}

// SetHeaderField applies a user-initiated header change. The three override
// fields fan out to every line, not just the current one.
func (s *Session) SetHeaderField(id, value string) {
	for _, fo := range s.schema.FanOut {
		if id == fo {
			s.fanOut(id, value)
			return
		}
	}
	if f, ok := s.schema.Lookup(id); ok && !f.LineColumn {
		s.writeHeader(f, value, nil)
	}
}

func (s *Session) fanOut(id, value string) {
	for i := range s.doc.Lines {
		switch id {
		case "department":
			s.doc.Lines[i].Department = value
		case "location":
			s.doc.Lines[i].Location = value
		case "class":
			s.doc.Lines[i].Class = value
		}
	}
}

// LastBound returns the literal source text last applied to a field.
func (s *Session) LastBound(field string) (string, bool) {
	v, ok := s.history[field]
	return v, ok
}

// Highlight marks text as highlighted in the source view.
func (s *Session) Highlight(text string) {
	s.highlighted = text
}

// ClearHighlights is idempotent and safe when nothing is highlighted.
func (s *Session) ClearHighlights() {
	s.highlighted = ""
}

// Highlighted exposes the current highlight for the source view.
func (s *Session) Highlighted() string {
	return s.highlighted
}

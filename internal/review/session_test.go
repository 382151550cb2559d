package review

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/forms"
)

func newDoc() *entity.StagingDocument {
	return &entity.StagingDocument{
		Lines: []entity.LineItem{
			{Description: "Widgets"},
			{Description: "Shipping"},
		},
	}
}

func newSession(doc *entity.StagingDocument) *Session {
	return NewSession(forms.BillSchema(), doc, "M/D/YYYY", nil)
}

func frag(text string, x, y float64) Fragment {
	return Fragment{Text: text, Page: 1, Box: Rect{X: x, Y: y, Width: 8, Height: 10}}
}

func TestFocusAndBlur(t *testing.T) {
	s := newSession(newDoc())
	assert.Equal(t, Idle, s.State())

	s.FocusField("documentnumber")
	assert.Equal(t, FieldFocused, s.State())
	assert.Equal(t, "documentnumber", s.ActiveField())

	s.Blur()
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.ActiveField())
}

func TestFocusIgnoreListedFieldIsNoOp(t *testing.T) {
	s := newSession(newDoc())
	s.FocusField("memo") // ignore-listed: manual entry must not be clobbered
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.ActiveField())
}

func TestFocusReferenceFieldsIsNoOp(t *testing.T) {
	s := newSession(newDoc())

	// Directory references are picked from a list, never bound from text.
	for _, id := range []string{"vendor", "subsidiary"} {
		s.FocusField(id)
		assert.Equal(t, Idle, s.State(), "field %q must not become a bind target", id)
	}
}

func TestClickBindPlainText(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.FocusField("documentnumber")
	s.Hover(frag("INV-42", 100, 50))
	s.CaptureClick()
	assert.Equal(t, PendingBind, s.State())

	require.True(t, s.ApplyBind())
	assert.Equal(t, "INV-42", doc.DocumentNumber)
	assert.Equal(t, FieldFocused, s.State())
}

func TestDragBindReconstructsSelection(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	frags := []Fragment{
		frag("I", 10, 20), frag("N", 18, 20), frag("V", 26, 20),
		frag("-", 34, 20), frag("4", 42, 20), frag("2", 50, 20),
		frag("x", 400, 20), // same line, outside the drag
		frag("y", 10, 200), // different line entirely
	}
	s.FocusField("documentnumber")
	s.CaptureDrag(frags, Rect{X: 5, Y: 15, Width: 60, Height: 20})
	require.True(t, s.ApplyBind())
	assert.Equal(t, "INV-42", doc.DocumentNumber)
}

func TestDragSelectionOrdersLinesTopToBottom(t *testing.T) {
	frags := []Fragment{
		frag("B", 10, 40), frag("2", 18, 40),
		frag("A", 10, 20), frag("1", 18, 20),
	}
	got := ExtractSelection(frags, Rect{X: 0, Y: 0, Width: 100, Height: 100})
	assert.Equal(t, "A1\nB2", got)
}

func TestBindDateCoercion(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.FocusField("transactiondate")
	s.Hover(frag("25-Dec-2024", 10, 10))
	s.CaptureClick()
	require.True(t, s.ApplyBind())
	require.NotNil(t, doc.TransactionDate)
	assert.Equal(t, time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC), *doc.TransactionDate)
}

func TestBindDateSurvivesDayFirstDisplayFormat(t *testing.T) {
	doc := newDoc()
	s := NewSession(forms.BillSchema(), doc, "D/M/YYYY", nil)

	s.FocusField("transactiondate")
	s.Hover(frag("3-Apr-2024", 10, 10))
	s.CaptureClick()
	require.True(t, s.ApplyBind())
	require.NotNil(t, doc.TransactionDate)
	// "3/4/2024" in the display format must not be re-read as March 4.
	assert.Equal(t, time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC), *doc.TransactionDate)
}

func TestBindDateParseFailureAbortsBind(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.FocusField("transactiondate")
	s.Hover(frag("not a date", 10, 10))
	s.CaptureClick()
	assert.False(t, s.ApplyBind(), "garbage must not be written to a date field")
	assert.Nil(t, doc.TransactionDate)
	assert.Equal(t, FieldFocused, s.State())

	_, bound := s.LastBound("transactiondate")
	assert.False(t, bound, "aborted binds leave no history")
}

func TestBindCurrencyStripping(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.FocusField("taxamount")
	s.Hover(frag("$1,234.56", 10, 10))
	s.CaptureClick()
	require.True(t, s.ApplyBind())
	require.NotNil(t, doc.TaxAmount)
	assert.True(t, doc.TaxAmount.Equal(decimal.RequireFromString("1234.56")))
}

func TestBindRoutesToSelectedLine(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.SelectLine(1)
	s.FocusField("lineamount")
	s.Hover(frag("€99.00", 10, 10))
	s.CaptureClick()
	require.True(t, s.ApplyBind())

	require.NotNil(t, doc.Lines[1].Amount)
	assert.True(t, doc.Lines[1].Amount.Equal(decimal.RequireFromString("99.00")))
	assert.Nil(t, doc.Lines[0].Amount, "only the selected line takes the write")
}

func TestBindLineColumnWithoutSelectionFails(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.FocusField("lineamount")
	s.Hover(frag("99.00", 10, 10))
	s.CaptureClick()
	assert.False(t, s.ApplyBind())
	assert.Nil(t, doc.Lines[0].Amount)
	assert.Nil(t, doc.Lines[1].Amount)
}

func TestSelectLineOutOfRangeClearsSelection(t *testing.T) {
	s := newSession(newDoc())
	s.SelectLine(1)
	assert.Equal(t, 1, s.SelectedLine())
	s.SelectLine(7)
	assert.Equal(t, -1, s.SelectedLine())
}

func TestBindHistoryAndRehighlight(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.FocusField("documentnumber")
	s.Hover(frag("INV-42", 10, 10))
	s.CaptureClick()
	require.True(t, s.ApplyBind())

	last, ok := s.LastBound("documentnumber")
	require.True(t, ok)
	assert.Equal(t, "INV-42", last)

	s.ClearHighlights()
	assert.Empty(t, s.Highlighted())
	s.ClearHighlights() // idempotent when nothing is highlighted

	// re-focusing re-highlights the provenance text
	s.Blur()
	s.FocusField("documentnumber")
	assert.Equal(t, "INV-42", s.Highlighted())
}

func TestFanOutFieldsApplyToEveryLine(t *testing.T) {
	doc := newDoc()
	s := newSession(doc)

	s.SetHeaderField("department", "Ops")
	for i := range doc.Lines {
		assert.Equal(t, "Ops", doc.Lines[i].Department, "line %d", i)
	}

	s.SetHeaderField("class", "Capex")
	for i := range doc.Lines {
		assert.Equal(t, "Capex", doc.Lines[i].Class, "line %d", i)
	}
}

func TestCaptureWithoutFocusIsNoOp(t *testing.T) {
	s := newSession(newDoc())
	s.Hover(frag("INV-42", 10, 10))
	s.CaptureClick()
	assert.Equal(t, Idle, s.State())
	assert.False(t, s.ApplyBind())
}

// Package forms describes the review form's field schema: which fields
// exist, what kind of value each carries, and whether a field lives on the
// document header or on the repeating line collection. The schema is
// resolved once at load; nothing downstream re-derives field behavior from
// strings.
package forms

// FieldKind is a closed set of value behaviors for bind and mapping.
type FieldKind int

const (
	KindPlainText FieldKind = iota
	KindDate
	KindCurrency
	// KindLineRef marks a field that selects a line of the repeating
	// collection rather than carrying a value itself.
	KindLineRef
)

// Field is one form field definition.
type Field struct {
	ID         string
	Kind       FieldKind
	LineColumn bool // column of the repeating line collection, not a header field
	// IgnoreFocus excludes a field from bind targeting so accidental clicks
	// never clobber manual entry.
	IgnoreFocus bool
}

// Schema is the resolved form layout.
type Schema struct {
	fields map[string]Field
	// LineCollection names the primary repeating line collection.
	LineCollection string
	// FanOut lists the header fields that, when changed, overwrite the
	// corresponding column on every line.
	FanOut []string
}

// Lookup resolves a field id. The ok result is false for ids the form does
// not declare at all.
func (s *Schema) Lookup(id string) (Field, bool) {
	f, ok := s.fields[id]
	return f, ok
}

// HasLineCollection reports whether the form declares a repeating line
// collection. Absence is a setup error surfaced by the promotion gate.
func (s *Schema) HasLineCollection() bool {
	return s.LineCollection != ""
}

// NewSchema builds a schema from field definitions.
func NewSchema(lineCollection string, fanOut []string, fields ...Field) *Schema {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.ID] = f
	}
	return &Schema{fields: m, LineCollection: lineCollection, FanOut: fanOut}
}

// BillSchema is the staged-bill review form layout.
func BillSchema() *Schema {
	return NewSchema("lines",
		[]string{"department", "location", "class"},
		// vendor and subsidiary are references into the directory, picked
		// from a list rather than typed, so captured text cannot bind them.
		Field{ID: "vendor", Kind: KindPlainText, IgnoreFocus: true},
		Field{ID: "subsidiary", Kind: KindPlainText, IgnoreFocus: true},
		Field{ID: "documentnumber", Kind: KindPlainText},
		Field{ID: "transactiondate", Kind: KindDate},
		Field{ID: "totalamount", Kind: KindCurrency, IgnoreFocus: true},
		Field{ID: "taxamount", Kind: KindCurrency},
		Field{ID: "memo", Kind: KindPlainText, IgnoreFocus: true},
		Field{ID: "department", Kind: KindPlainText},
		Field{ID: "location", Kind: KindPlainText},
		Field{ID: "class", Kind: KindPlainText},
		Field{ID: "selectedline", Kind: KindLineRef},
		Field{ID: "description", Kind: KindPlainText, LineColumn: true},
		Field{ID: "lineamount", Kind: KindCurrency, LineColumn: true},
		Field{ID: "unitprice", Kind: KindCurrency, LineColumn: true},
		Field{ID: "quantity", Kind: KindPlainText, LineColumn: true},
		Field{ID: "category", Kind: KindPlainText, LineColumn: true, IgnoreFocus: true},
	)
}

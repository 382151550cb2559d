package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{
	"vendor_name": "Acme Supplies",
	"Subsidiary": "Acme US",
	"BillNumber": "INV-42",
	"totaltax": 3.50,
	"total_amount": 40.00,
	"items": [
		{"Description": "Widgets", "Line_amount": "30.00", "Unit_price": 15, "Quantity": 2},
		{"Description": "Shipping", "Line_amount": 10.0, "Unit_price": "10.00", "Quantity": "1"}
	],
	"originalfile": [{"filename": "invoice_42.pdf", "contents": "JVBERi0="}],
	"nanonets_uploaded_at": "2024-03-04T10:00:00Z"
}`

func TestDecodeValidPayload(t *testing.T) {
	p, err := Decode([]byte(validBody), nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme Supplies", p.VendorName)
	assert.Equal(t, "INV-42", p.BillNumber)
	require.NotNil(t, p.TotalAmount)
	assert.InDelta(t, 40.0, *p.TotalAmount, 0.001)
	require.NotNil(t, p.TotalTax)
	assert.InDelta(t, 3.5, *p.TotalTax, 0.001)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, "invoice_42.pdf", p.FirstFileName())
}

func TestDecodeRejectsMissingFile(t *testing.T) {
	_, err := Decode([]byte(`{"vendor_name":"Acme"}`), nil)
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"vendor_name":`), nil)
	assert.Error(t, err)
}

func TestSanitizeRenamesSynonyms(t *testing.T) {
	raw := []byte(`{
		"supplier_name": "Acme",
		"invoice_number": "INV-7",
		"tax_amount": "1.25",
		"originalfile": [{"filename": "a.pdf"}]
	}`)
	clean, dropped, err := NormalizeAndSanitizeJSON(raw, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, dropped)

	var m map[string]any
	require.NoError(t, json.Unmarshal(clean, &m))
	assert.Equal(t, "Acme", m["vendor_name"])
	assert.Equal(t, "INV-7", m["BillNumber"])
	assert.InDelta(t, 1.25, m["totaltax"], 0.001)
	_, hasOld := m["supplier_name"]
	assert.False(t, hasOld)
}

func TestSanitizeStripsCurrencySymbols(t *testing.T) {
	raw := []byte(`{
		"total_amount": "$1,234.56",
		"totaltax": "€3.50",
		"originalfile": [{"filename": "a.pdf"}]
	}`)
	clean, dropped, err := NormalizeAndSanitizeJSON(raw, nil)
	require.NoError(t, err)
	assert.Empty(t, dropped, "symbol-bearing amounts coerce, they do not drop")

	var m map[string]any
	require.NoError(t, json.Unmarshal(clean, &m))
	assert.InDelta(t, 1234.56, m["total_amount"], 0.001)
	assert.InDelta(t, 3.50, m["totaltax"], 0.001)
}

func TestSanitizeDropsUnknownAndEmpty(t *testing.T) {
	raw := []byte(`{
		"vendor_name": "  ",
		"totaltax": null,
		"total_amount": "not a number",
		"mystery_key": 7,
		"originalfile": [{"filename": "a.pdf"}]
	}`)
	clean, _, err := NormalizeAndSanitizeJSON(raw, nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(clean, &m))
	for _, k := range []string{"vendor_name", "totaltax", "total_amount", "mystery_key"} {
		_, ok := m[k]
		assert.False(t, ok, "expected %q to be dropped", k)
	}
}

func TestSanitizeDoesNotOverwriteOnRename(t *testing.T) {
	raw := []byte(`{"vendor": "Old", "vendor_name": "Keep", "originalfile": [{"filename": "a.pdf"}]}`)
	clean, _, err := NormalizeAndSanitizeJSON(raw, nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(clean, &m))
	assert.Equal(t, "Keep", m["vendor_name"])
}

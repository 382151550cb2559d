package extraction

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/billhound/docstage/internal/money"
)

// NormalizeAndSanitizeJSON
// - Renames known synonyms (bill_number -> BillNumber, vendor -> vendor_name)
// - Drops null/empty optionals
// - Coerces numeric -> number for money-ish header fields sent as strings
// - Removes unknown keys before schema validation
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the expected payload keys
	renamed("vendor", "vendor_name")
	renamed("supplier_name", "vendor_name")
	renamed("bill_number", "BillNumber")
	renamed("invoice_number", "BillNumber")
	renamed("subsidiary", "Subsidiary")
	renamed("tax_amount", "totaltax")
	renamed("amount", "total_amount")

	// 2) drop null / "" optionals; coerce money fields sent as strings
	moneyFields := []string{"totaltax", "total_amount"}
	coerceMoney := func(k string) {
		v, ok := m[k]
		if !ok {
			return
		}
		switch t := v.(type) {
		case float64:
			// already numeric
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
				return
			}
			// symbol-bearing amounts ("$1,234.56") are stripped and
			// coerced, not dropped
			d, ok := money.Parse(s)
			if !ok {
				delete(m, k)
				dropped = append(dropped, k+"(nonnumeric)")
				return
			}
			m[k] = d.InexactFloat64()
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}
	for _, k := range moneyFields {
		coerceMoney(k)
	}

	// 3) remove unknown keys (everything the schema does not describe)
	allowed := map[string]struct{}{
		"vendor_name": {}, "Subsidiary": {}, "BillNumber": {},
		"totaltax": {}, "total_amount": {}, "items": {}, "originalfile": {},
		"nanonets_uploaded_at": {}, "transaction_type": {}, "memo": {}, "email_body": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 4) trim obvious strings
	trimKeys := []string{"vendor_name", "Subsidiary", "BillNumber", "transaction_type", "memo"}
	for _, k := range trimKeys {
		if v, ok := m[k].(string); ok {
			s := strings.TrimSpace(v)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("extraction.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

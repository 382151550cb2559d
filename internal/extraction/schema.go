package extraction

// BuildPayloadJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the inbound extraction submission. Unknown keys are
// tolerated on the wire; the sanitize pass strips them before mapping.
func BuildPayloadJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Description": map[string]any{"type": "string"},
			"Line_amount": amountProp(),
			"Unit_price":  amountProp(),
			"Quantity":    amountProp(),
		},
	}
	file := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filename": map[string]any{"type": "string", "minLength": 1},
			"contents": map[string]any{"type": "string"},
		},
		"required": []string{"filename"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendor_name":          map[string]any{"type": "string"},
			"Subsidiary":           map[string]any{"type": "string"},
			"BillNumber":           map[string]any{"type": "string"},
			"totaltax":             map[string]any{"type": "number"},
			"total_amount":         map[string]any{"type": "number"},
			"items":                map[string]any{"type": "array", "items": item},
			"originalfile":         map[string]any{"type": "array", "items": file, "minItems": 1},
			"nanonets_uploaded_at": map[string]any{"type": "string"},
			"transaction_type":     map[string]any{"type": "string"},
			"memo":                 map[string]any{"type": "string"},
			"email_body":           map[string]any{"type": "string"},
		},
		"required": []string{"originalfile"},
	}
}

// amountProp matches the vendor's habit of sending amounts as either
// numbers or numeric-ish strings.
func amountProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string"},
		},
	}
}

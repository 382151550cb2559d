package entity

// ExtractionPayload is the inbound field-extraction submission from the OCR
// vendor callback. Key casing follows the vendor's wire format.
type ExtractionPayload struct {
	VendorName     string            `json:"vendor_name"`
	Subsidiary     string            `json:"Subsidiary"`
	BillNumber     string            `json:"BillNumber"`
	TotalTax       *float64          `json:"totaltax,omitempty"`
	TotalAmount    *float64          `json:"total_amount,omitempty"`
	Items          []ExtractionItem  `json:"items"`
	OriginalFile   []PayloadFile     `json:"originalfile"`
	UploadedAt     string            `json:"nanonets_uploaded_at,omitempty"`
	TransactionTyp string            `json:"transaction_type,omitempty"`
	Memo           string            `json:"memo,omitempty"`
	EmailBody      string            `json:"email_body,omitempty"`
	Extra          map[string]string `json:"-"`
}

// ExtractionItem is one extracted line. Amount-ish values arrive as either
// strings or numbers depending on the vendor's mood, so they stay raw here.
type ExtractionItem struct {
	Description string `json:"Description"`
	LineAmount  any    `json:"Line_amount"`
	UnitPrice   any    `json:"Unit_price"`
	Quantity    any    `json:"Quantity"`
}

// PayloadFile carries the original document as base64.
type PayloadFile struct {
	Filename string `json:"filename"`
	Contents string `json:"contents"`
}

// FirstFileName returns the filename of the first attached original file,
// the submission's primary identity.
func (p *ExtractionPayload) FirstFileName() string {
	if len(p.OriginalFile) == 0 {
		return ""
	}
	return p.OriginalFile[0].Filename
}

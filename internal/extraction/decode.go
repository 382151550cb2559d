package extraction

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/billhound/docstage/internal/entity"
)

// Decode sanitizes, validates and decodes an inbound submission body into an
// ExtractionPayload.
func Decode(raw []byte, logger *slog.Logger) (*entity.ExtractionPayload, error) {
	clean, _, err := NormalizeAndSanitizeJSON(raw, logger)
	if err != nil {
		return nil, err
	}
	if err := ValidateJSONAgainstSchema(BuildPayloadJSONSchema(), clean); err != nil {
		return nil, err
	}
	var p entity.ExtractionPayload
	if err := json.Unmarshal(clean, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p.FirstFileName() == "" {
		return nil, fmt.Errorf("payload has no original file name")
	}
	return &p, nil
}

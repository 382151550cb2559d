// Package pdftext extracts the positioned-text layer from PDF documents so
// the review surface can map drag rectangles back to source text.
package pdftext

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/review"
)

// PDF coordinates grow upward from the bottom-left corner; the review
// surface uses screen coordinates with Y growing downward. Pages that do
// not declare a media box are treated as US Letter.
const defaultPageHeight = 792.0

const defaultFontSize = 12.0

// Extractor reads positioned text fragments out of raw PDF bytes.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Fragments returns every text fragment in the document, in page order,
// with boxes converted to surface coordinates.
func (e *Extractor) Fragments(data []byte) ([]review.Fragment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf data", common.ErrValidation)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable pdf: %v", common.ErrValidation, err)
	}

	var frags []review.Fragment
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			e.logger.Warn("pdftext.page.null", "page", pageNum)
			continue
		}
		pageFrags, err := e.pageFragments(page, pageNum)
		if err != nil {
			// One malformed page should not sink the rest of the document.
			e.logger.Warn("pdftext.page.extract_failed", "page", pageNum, "error", err)
			continue
		}
		frags = append(frags, pageFrags...)
	}

	e.logger.Debug("pdftext.extracted", "pages", r.NumPage(), "fragments", len(frags))
	return frags, nil
}

func (e *Extractor) pageFragments(page pdf.Page, pageNum int) (frags []review.Fragment, err error) {
	// The content parser panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("content parse panic: %v", rec)
		}
	}()

	height := pageHeight(page)
	content := page.Content()
	frags = make([]review.Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		h := t.FontSize
		if h <= 0 {
			h = defaultFontSize
		}
		frags = append(frags, review.Fragment{
			Text: t.S,
			Page: pageNum,
			Box: review.Rect{
				X:      t.X,
				Y:      height - (t.Y + h),
				Width:  t.W,
				Height: h,
			},
		})
	}
	return frags, nil
}

func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return defaultPageHeight
	}
	top := box.Index(3).Float64()
	if top <= 0 {
		return defaultPageHeight
	}
	return top
}

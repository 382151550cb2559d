package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/billhound/docstage/internal/duplicates"
	"github.com/billhound/docstage/internal/repository"
)

// Service is a tiny façade over the staging repository that produces XLSX
// bytes for worklist exports.
type Service struct {
	stagingRepo repository.StagingRepository
	logger      *slog.Logger
}

func NewService(stagingRepo repository.StagingRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{stagingRepo: stagingRepo, logger: logger}
}

// ExportWorklistXLSX returns an XLSX workbook (as bytes) of every pending
// staged document, with the same duplicate and missing-number alerts the
// list view shows.
func (s *Service) ExportWorklistXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.stagingRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("query worklist: %w", err)
	}
	flags := duplicates.Aggregate(recs, s.logger)

	f := excelize.NewFile()
	const sheet = "Worklist"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop the default sheet so the workbook opens on the worklist.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"File Name",
		"Document Number",
		"Transaction Date",
		"Status",
		"Total",
		"Tax",
		"Memo",
		"Alert",
		"Last Updated",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.FileName)
		write(2, r.DocumentNumber)
		write(3, formatDate(r.TransactionDate))
		write(4, string(r.ProcessStatus))
		write(5, formatAmount(r.TotalAmount))
		write(6, formatAmount(r.TaxAmount))
		write(7, truncate(r.Memo, 140))
		if alert, ok := flags.Alert(r.ID); ok {
			write(8, alert)
		}
		if !r.UpdatedAt.IsZero() {
			write(9, r.UpdatedAt.UTC().Format("2006-01-02 15:04"))
		}

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 36) // file name
	_ = f.SetColWidth(sheet, "B", "B", 18) // document number
	_ = f.SetColWidth(sheet, "C", "C", 14) // date
	_ = f.SetColWidth(sheet, "D", "D", 22) // status
	_ = f.SetColWidth(sheet, "E", "F", 12) // amounts
	_ = f.SetColWidth(sheet, "G", "G", 48) // memo
	_ = f.SetColWidth(sheet, "H", "H", 44) // alert
	_ = f.SetColWidth(sheet, "I", "I", 18) // updated

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

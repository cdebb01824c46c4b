package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

const (
	invoicesSheet = "Invoices"
	summarySheet  = "Summary"
)

var xlsxHeader = []interface{}{
	"Invoice Number", "Vendor", "Amount", "Currency", "Date", "Due Date", "Status", "Category", "AI Confidence",
}

// XLSXWriter renders a report as a workbook with an invoice sheet and a
// summary sheet.
type XLSXWriter struct {
	logger *zap.Logger
}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter(logger *zap.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger}
}

// Write renders report to w
func (x *XLSXWriter) Write(w io.Writer, report analytics.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1
	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := x.fillInvoices(f, report.Records); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := x.fillSummary(f, report); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Debug("Report workbook written",
		zap.Int("records", len(report.Records)),
		zap.String("period", report.Query.Period))
	return nil
}

func (x *XLSXWriter) fillInvoices(f *excelize.File, records []*entity.Invoice) error {
	if err := f.SetSheetRow(invoicesSheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("failed to set header: %w", err)
	}

	for i, r := range records {
		var confidence interface{}
		if r.AIConfidence != nil {
			confidence = *r.AIConfidence
		}
		row := []interface{}{
			r.InvoiceNumber,
			r.Vendor,
			r.Amount.InexactFloat64(),
			r.Currency,
			r.Date,
			r.EffectiveDueDate(),
			r.Status,
			analytics.CategoryKey(r),
			confidence,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(invoicesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to set row %d: %w", i+2, err)
		}
	}

	return nil
}

func (x *XLSXWriter) fillSummary(f *excelize.File, report analytics.Report) error {
	s := report.Summary
	rows := [][]interface{}{
		{"Period", report.Query.Period},
		{"Category", report.Query.Category},
		{"From", report.From.Format(entity.DateLayout)},
		{"To", report.To.Format(entity.DateLayout)},
		{"Total Amount", s.TotalAmount.InexactFloat64()},
		{"Total Invoices", s.TotalCount},
		{"Processed", s.ProcessedCount},
		{"Average Amount", s.AverageAmount.InexactFloat64()},
		{"Growth %", s.Growth},
		{"Processing Rate %", s.ProcessingRate},
		{},
		{"Category", "Amount", "Invoices"},
	}
	for _, c := range report.Categories {
		rows = append(rows, []interface{}{c.Category, c.Amount.InexactFloat64(), c.Count})
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to set summary row %d: %w", i+1, err)
		}
	}

	return nil
}

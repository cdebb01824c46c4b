// Package export renders report records as downloadable files
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// Supported export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentTypes maps a format to its response content type
var ContentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var csvHeader = []string{"Invoice Number", "Vendor", "Amount", "Date", "Status", "Category"}

// FileName returns the download name for a report exported on now
func FileName(format string, now time.Time) string {
	return fmt.Sprintf("accounting-report-%s.%s", now.Format(entity.DateLayout), format)
}

// WriteCSV writes one row per record under a fixed header
func WriteCSV(w io.Writer, records []*entity.Invoice) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		category := r.Category
		if category == "" {
			category = entity.CategoryOther
		}
		row := []string{
			r.InvoiceNumber,
			r.Vendor,
			r.Amount.String(),
			r.Date,
			r.Status,
			category,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVWriter writes the records of a report as CSV
type CSVWriter struct{}

// Write implements port.ReportWriter
func (CSVWriter) Write(w io.Writer, report analytics.Report) error {
	return WriteCSV(w, report.Records)
}

var (
	_ port.ReportWriter = CSVWriter{}
	_ port.ReportWriter = (*XLSXWriter)(nil)
)

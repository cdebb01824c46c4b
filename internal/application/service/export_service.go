package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// ExportService renders report-filtered records as files
type ExportService interface {
	// Formats lists the supported export formats
	Formats() []string
	Export(ctx context.Context, userID string, q analytics.ReportQuery, format string, w io.Writer) error
}

type exportServiceImpl struct {
	analytics AnalyticsService
	writers   map[string]port.ReportWriter
	order     []string
	logger    Logger
}

// NewExportService creates a new ExportService. writers maps a format name
// such as "csv" to its renderer.
func NewExportService(analyticsService AnalyticsService, writers map[string]port.ReportWriter, order []string, logger Logger) ExportService {
	return &exportServiceImpl{
		analytics: analyticsService,
		writers:   writers,
		order:     order,
		logger:    logger,
	}
}

func (s *exportServiceImpl) Formats() []string {
	return append([]string(nil), s.order...)
}

// Export writes the report for q in format to w
func (s *exportServiceImpl) Export(ctx context.Context, userID string, q analytics.ReportQuery, format string, w io.Writer) error {
	writer, ok := s.writers[format]
	if !ok {
		return fmt.Errorf("%w: unsupported export format %q", entity.ErrInvalidInput, format)
	}

	report, err := s.analytics.Report(ctx, userID, q)
	if err != nil {
		return err
	}

	if err := writer.Write(w, report); err != nil {
		s.logger.Error("Failed to write export", "error", err, "user_id", userID, "format", format)
		return fmt.Errorf("write %s export: %w", format, err)
	}

	s.logger.Info("Report exported", "user_id", userID, "format", format, "records", len(report.Records))
	return nil
}

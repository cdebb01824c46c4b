package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

func TestExport(t *testing.T) {
	writer := &mockReportWriter{}
	analyticsService := newTestAnalytics(newMockInvoiceRepo(analyticsRecords()...), nil, AnalyticsConfig{})
	svc := NewExportService(analyticsService, map[string]port.ReportWriter{"csv": writer}, []string{"csv"}, &mockLogger{})

	var buf bytes.Buffer
	err := svc.Export(context.Background(), "user-1", analytics.ReportQuery{Period: analytics.Period3Months}, "csv", &buf)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if buf.String() != "rendered" {
		t.Errorf("output = %q", buf.String())
	}
	if len(writer.report.Records) != 2 {
		t.Errorf("report records = %d, want 2", len(writer.report.Records))
	}
	if writer.report.Query.Period != analytics.Period3Months {
		t.Errorf("period = %s", writer.report.Query.Period)
	}
}

func TestExport_Errors(t *testing.T) {
	analyticsService := newTestAnalytics(newMockInvoiceRepo(analyticsRecords()...), nil, AnalyticsConfig{})
	failing := &mockReportWriter{err: errors.New("short write")}
	svc := NewExportService(analyticsService, map[string]port.ReportWriter{"xlsx": failing}, []string{"xlsx"}, &mockLogger{})

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), "user-1", analytics.ReportQuery{}, "pdf", &buf); !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("unknown format err = %v, want ErrInvalidInput", err)
	}
	if err := svc.Export(context.Background(), "user-1", analytics.ReportQuery{}, "xlsx", &buf); err == nil {
		t.Error("expected writer error")
	}
}

func TestExport_Formats(t *testing.T) {
	svc := NewExportService(nil, nil, []string{"csv", "xlsx"}, &mockLogger{})

	formats := svc.Formats()
	formats[0] = "changed"

	if got := svc.Formats(); got[0] != "csv" || got[1] != "xlsx" {
		t.Errorf("formats = %v", got)
	}
}

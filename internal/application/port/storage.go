package port

import (
	"context"
	"io"

	"github.com/garyjia/invoice-insights/internal/analytics"
)

// ObjectStorage stores uploaded invoice files
type ObjectStorage interface {
	// Upload stores content under path and returns a URL or URI that
	// identifies the stored object.
	Upload(ctx context.Context, path string, content []byte, contentType string) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// ReportWriter renders a report as a downloadable file
type ReportWriter interface {
	Write(w io.Writer, report analytics.Report) error
}

// Package document prepares uploaded invoice files for AI extraction:
// PDFs are rasterized, photos are downscaled and HTML e-invoices are reduced
// to their text.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

// ErrUnsupportedType is returned for files that cannot be prepared
var ErrUnsupportedType = errors.New("unsupported file type")

// Config controls image preparation
type Config struct {
	MaxDimension int // longest side in pixels after downscaling
	JPEGQuality  int
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{MaxDimension: 2048, JPEGQuality: 85}
}

// Renderer implements port.DocumentRenderer
type Renderer struct {
	cfg    Config
	logger *zap.Logger
}

// NewRenderer creates a new document renderer
func NewRenderer(cfg Config, logger *zap.Logger) *Renderer {
	def := DefaultConfig()
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = def.MaxDimension
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Prepare converts an uploaded file into extractor input
func (r *Renderer) Prepare(ctx context.Context, content []byte, fileName, mimeType string) (*port.PreparedDocument, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty file %q", fileName)
	}

	kind := DetectType(content, fileName, mimeType)
	r.logger.Debug("Preparing document",
		zap.String("file_name", fileName),
		zap.String("type", kind),
		zap.Int("size", len(content)))

	switch {
	case kind == "application/pdf":
		return r.preparePDF(content)
	case strings.HasPrefix(kind, "image/"):
		img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return r.prepareImage(img)
	case kind == "text/html":
		text, err := HTMLText(content)
		if err != nil {
			return nil, err
		}
		return &port.PreparedDocument{Kind: port.DocumentText, Text: text}, nil
	case strings.HasPrefix(kind, "text/"):
		return &port.PreparedDocument{Kind: port.DocumentText, Text: string(content)}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
}

// preparePDF rasterizes the first page; invoices carry their totals there
func (r *Renderer) preparePDF(content []byte) (*port.PreparedDocument, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, errors.New("PDF has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF page: %w", err)
	}

	r.logger.Debug("Rendered PDF page", zap.Int("total_pages", doc.NumPage()))
	return r.prepareImage(img)
}

func (r *Renderer) prepareImage(img image.Image) (*port.PreparedDocument, error) {
	b := img.Bounds()
	if b.Dx() > r.cfg.MaxDimension || b.Dy() > r.cfg.MaxDimension {
		img = imaging.Fit(img, r.cfg.MaxDimension, r.cfg.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.cfg.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return &port.PreparedDocument{
		Kind:     port.DocumentImage,
		Image:    buf.Bytes(),
		MimeType: "image/jpeg",
	}, nil
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".csv":  "text/csv",
}

// DetectType resolves the media type of an upload from its declared type,
// its extension and finally its content.
func DetectType(content []byte, fileName, mimeType string) string {
	if mt := baseType(mimeType); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return baseType(http.DetectContentType(content))
}

func baseType(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// HTMLText extracts readable text from an HTML invoice. Table cells on one
// row are joined with " | " so line items stay together.
func HTMLText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var lines []string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Children().Each(func(_ int, cell *goquery.Selection) {
			if t := collapse(cell.Text()); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " | "))
		}
	})
	doc.Find("table").Remove()

	doc.Find("h1, h2, h3, h4, p, li, div, span, td").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		if t := collapse(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})

	if len(lines) == 0 {
		if t := collapse(doc.Text()); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ port.DocumentRenderer = (*Renderer)(nil)

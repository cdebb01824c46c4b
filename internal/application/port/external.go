package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
	"github.com/garyjia/invoice-insights/internal/domain/event"
)

// ErrUnauthenticated is returned when a token cannot be verified
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrLockNotObtained is returned when another process holds a lock
var ErrLockNotObtained = errors.New("lock not obtained")

// Principal is the authenticated caller
type Principal struct {
	UserID string
	Email  string
	Name   string
}

// IdentityProvider verifies bearer tokens
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// ExtractionResult is the structured output of an AI extraction
type ExtractionResult struct {
	Fields entity.RawInvoice
	Raw    string
}

// AIExtractor turns invoice documents into structured fields
type AIExtractor interface {
	ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*ExtractionResult, error)
	ExtractFromText(ctx context.Context, text string) (*ExtractionResult, error)
}

// TextGenerator produces free text from a prompt
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// DocumentKind tells how an uploaded file was prepared for extraction
type DocumentKind int

const (
	DocumentImage DocumentKind = iota
	DocumentText
)

// PreparedDocument is a file converted into something an AIExtractor accepts
type PreparedDocument struct {
	Kind     DocumentKind
	Image    []byte
	MimeType string
	Text     string
}

// DocumentRenderer converts uploaded files into extractor input
type DocumentRenderer interface {
	Prepare(ctx context.Context, content []byte, fileName, mimeType string) (*PreparedDocument, error)
}

// EventPublisher forwards domain events to other systems
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
	Close() error
}

// ReportCache stores rendered analytics payloads per user
type ReportCache interface {
	Get(ctx context.Context, userID, key string) ([]byte, bool, error)
	Set(ctx context.Context, userID, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

// Lock is a held distributed lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out short-lived exclusive claims on keys
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

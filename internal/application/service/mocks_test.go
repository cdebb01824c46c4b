package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/application/dispatcher"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
	"github.com/garyjia/invoice-insights/internal/domain/event"
)

var fixedNow = time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockInvoiceRepo keeps records in memory
type mockInvoiceRepo struct {
	mu        sync.Mutex
	records   map[string]*entity.Invoice
	createErr error
	updateErr error
	listCalls int
}

func newMockInvoiceRepo(records ...*entity.Invoice) *mockInvoiceRepo {
	r := &mockInvoiceRepo{records: make(map[string]*entity.Invoice)}
	for _, inv := range records {
		r.records[inv.ID] = inv
	}
	return r
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	cp := *invoice
	m.records[invoice.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, userID, id string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.records[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	out := make([]*entity.Invoice, 0)
	for _, inv := range m.records {
		if inv.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && inv.Category != filter.Category {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, inv.Status) {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockInvoiceRepo) Count(ctx context.Context, filter entity.InvoiceFilter) (int, error) {
	filter.Limit = 0
	items, err := m.List(ctx, filter)
	return len(items), err
}

func (m *mockInvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.records[invoice.ID]; !ok {
		return entity.ErrNotFound
	}
	cp := *invoice
	m.records[invoice.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Invoice, error) {
	return nil, errors.New("not used")
}

func (m *mockInvoiceRepo) get(id string) *entity.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockStorage struct {
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{objects: make(map[string][]byte)}
}

func (m *mockStorage) Upload(ctx context.Context, path string, content []byte, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.objects[path] = content
	return "https://files.example.com/" + path, nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	content, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return content, nil
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	delete(m.objects, path)
	return nil
}

type mockRenderer struct {
	doc *port.PreparedDocument
	err error
}

func (m *mockRenderer) Prepare(ctx context.Context, content []byte, fileName, mimeType string) (*port.PreparedDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.doc != nil {
		return m.doc, nil
	}
	return &port.PreparedDocument{Kind: port.DocumentImage, Image: content, MimeType: "image/jpeg"}, nil
}

type mockExtractor struct {
	result    *port.ExtractionResult
	err       error
	textCalls int
	imgCalls  int
}

func (m *mockExtractor) ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*port.ExtractionResult, error) {
	m.imgCalls++
	return m.result, m.err
}

func (m *mockExtractor) ExtractFromText(ctx context.Context, text string) (*port.ExtractionResult, error) {
	m.textCalls++
	return m.result, m.err
}

type mockGenerator struct {
	text    string
	err     error
	prompts []string
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.text, m.err
}

type mockDispatcher struct {
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, name string, handler dispatcher.Handler) {}
func (m *mockDispatcher) SubscribeAll(name string, handler dispatcher.Handler)                   {}
func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event)                     {}
func (m *mockDispatcher) Handlers(eventType event.Type) []dispatcher.HandlerInfo                  { return nil }
func (m *mockDispatcher) Close() error                                                            { return nil }

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) types() []event.Type {
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type mockCache struct {
	entries     map[string][]byte
	getErr      error
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, userID, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[userID+"/"+key]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, userID, key string, value []byte, ttl time.Duration) error {
	m.entries[userID+"/"+key] = value
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, userID string) error {
	m.invalidated = append(m.invalidated, userID)
	return nil
}

type mockReportWriter struct {
	report analytics.Report
	err    error
}

func (m *mockReportWriter) Write(w io.Writer, report analytics.Report) error {
	m.report = report
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "rendered")
	return err
}

func (m *mockInvoiceRepo) mustList(userID string) []*entity.Invoice {
	items, _ := m.List(context.Background(), entity.InvoiceFilter{UserID: userID})
	return items
}

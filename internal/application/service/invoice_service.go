package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/garyjia/invoice-insights/internal/application/dispatcher"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
	"github.com/garyjia/invoice-insights/internal/domain/event"
	"github.com/garyjia/invoice-insights/internal/domain/workflow"
	"github.com/garyjia/invoice-insights/pkg/utils"
)

// DefaultMaxUploadSize caps uploaded files at 10 MiB
const DefaultMaxUploadSize = 10 << 20

// EnhanceConfidenceBoost is added to the confidence of an AI-enhanced record
const EnhanceConfidenceBoost = 10

// KeyFunc builds the storage key of an uploaded file
type KeyFunc func(userID, fileName string, now time.Time) string

// UploadInput is a file submitted for extraction
type UploadInput struct {
	UserID      string `json:"user_id" validate:"required"`
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type"`
	Source      string `json:"source" validate:"omitempty,oneof=upload scan"`
	Content     []byte `json:"-"`
}

// InvoicePage is one page of a list query
type InvoicePage struct {
	Items  []*entity.Invoice `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// InvoiceDetail is a record plus the user triggers its status permits
type InvoiceDetail struct {
	*entity.Invoice
	Actions []workflow.Trigger `json:"actions"`
}

// EnhanceResult carries the AI suggestions for a record
type EnhanceResult struct {
	Invoice     *entity.Invoice `json:"invoice"`
	Suggestions string          `json:"suggestions"`
}

// ImportError explains why one legacy record was rejected
type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a legacy import
type ImportResult struct {
	Imported int           `json:"imported"`
	Rejected int           `json:"rejected"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// InvoiceServiceConfig tunes InvoiceService
type InvoiceServiceConfig struct {
	MaxUploadSize int64
	ObjectKey     KeyFunc
}

// InvoiceService manages invoice records through their lifecycle
type InvoiceService interface {
	Upload(ctx context.Context, in UploadInput) (*entity.Invoice, error)
	Process(ctx context.Context, invoice *entity.Invoice) error
	Get(ctx context.Context, userID, id string) (*entity.Invoice, error)
	Detail(ctx context.Context, userID, id string) (*InvoiceDetail, error)
	List(ctx context.Context, filter entity.InvoiceFilter) (*InvoicePage, error)
	Update(ctx context.Context, userID, id string, patch entity.InvoicePatch) (*entity.Invoice, error)
	Transition(ctx context.Context, userID, id string, trigger workflow.Trigger) (*entity.Invoice, error)
	Enhance(ctx context.Context, userID, id string) (*EnhanceResult, error)
	Import(ctx context.Context, userID string, records []entity.RawInvoice) (*ImportResult, error)
}

type invoiceServiceImpl struct {
	config    InvoiceServiceConfig
	repo      port.InvoiceRepository
	txManager port.TransactionManager
	storage   port.ObjectStorage
	renderer  port.DocumentRenderer
	extractor port.AIExtractor
	generator port.TextGenerator
	workflow  *workflow.InvoiceWorkflow
	events    dispatcher.Dispatcher
	logger    Logger
	now       Clock
}

// NewInvoiceService creates a new InvoiceService. extractor and generator
// may be nil, in which case extraction fails and Enhance returns
// ErrAIUnavailable.
func NewInvoiceService(
	config InvoiceServiceConfig,
	repo port.InvoiceRepository,
	txManager port.TransactionManager,
	storage port.ObjectStorage,
	renderer port.DocumentRenderer,
	extractor port.AIExtractor,
	generator port.TextGenerator,
	wf *workflow.InvoiceWorkflow,
	events dispatcher.Dispatcher,
	logger Logger,
) InvoiceService {
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = DefaultMaxUploadSize
	}
	return &invoiceServiceImpl{
		config:    config,
		repo:      repo,
		txManager: txManager,
		storage:   storage,
		renderer:  renderer,
		extractor: extractor,
		generator: generator,
		workflow:  wf,
		events:    events,
		logger:    logger,
		now:       utcNow,
	}
}

// Upload stores the file and creates a processing record for the extraction worker
func (s *invoiceServiceImpl) Upload(ctx context.Context, in UploadInput) (*entity.Invoice, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: empty file", entity.ErrInvalidInput)
	}
	if int64(len(in.Content)) > s.config.MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", entity.ErrInvalidInput, s.config.MaxUploadSize)
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(in.Content)
	}
	source := in.Source
	if source == "" {
		source = entity.SourceUpload
	}

	now := s.now()
	key := s.config.ObjectKey(in.UserID, in.FileName, now)

	url, err := s.storage.Upload(ctx, key, in.Content, contentType)
	if err != nil {
		s.logger.Error("Failed to store upload", "error", err, "user_id", in.UserID, "file_name", in.FileName)
		return nil, fmt.Errorf("store file: %w", err)
	}

	invoice, err := entity.Normalize(entity.RawInvoice{
		Status:   entity.StatusProcessing,
		Source:   source,
		FileURL:  url,
		FileName: in.FileName,
		FileSize: int64(len(in.Content)),
	}, in.UserID, now)
	if err != nil {
		return nil, err
	}
	invoice.FileKey = key
	invoice.FileType = contentType

	if err := s.repo.Create(ctx, invoice); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Error("Failed to remove orphaned upload", "error", delErr, "key", key)
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("Invoice uploaded", "invoice_id", invoice.ID, "user_id", in.UserID, "file_type", contentType)
	s.dispatch(ctx, event.NewEvent(event.TypeInvoiceUploaded, invoice.UserID, invoice.ID, map[string]interface{}{
		"file_name": invoice.FileName,
		"file_type": invoice.FileType,
	}))
	return invoice, nil
}

// Process runs extraction for a processing record. Extraction failures move
// the record to error and are returned after the record is saved.
func (s *invoiceServiceImpl) Process(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.Status != entity.StatusProcessing {
		return nil
	}

	result, err := s.extract(ctx, invoice)
	if err != nil {
		return s.failExtraction(ctx, invoice, err)
	}

	extracted, err := entity.Normalize(result.Fields, invoice.UserID, s.now())
	if err != nil {
		return s.failExtraction(ctx, invoice, err)
	}

	invoice.Vendor = extracted.Vendor
	invoice.InvoiceNumber = extracted.InvoiceNumber
	invoice.Amount = extracted.Amount
	invoice.Currency = extracted.Currency
	invoice.Date = extracted.Date
	invoice.DueDate = extracted.DueDate
	invoice.Description = extracted.Description
	invoice.Category = extracted.Category
	invoice.AIConfidence = extracted.AIConfidence
	invoice.ExtractedData = result.Raw
	invoice.ErrorMessage = ""

	confidence := invoice.ConfidenceOr(entity.DefaultConfidence)
	next, err := s.workflow.Next(workflow.WithConfidence(ctx, confidence), invoice.Status, workflow.TriggerExtractOK)
	if err != nil {
		return fmt.Errorf("transition after extraction: %w", err)
	}
	invoice.Status = next
	invoice.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, invoice); err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}

	s.logger.Info("Invoice extracted", "invoice_id", invoice.ID, "status", invoice.Status, "confidence", confidence)
	s.dispatch(ctx, event.NewEvent(event.TypeInvoiceAdded, invoice.UserID, invoice.ID, map[string]interface{}{
		"vendor":   invoice.Vendor,
		"amount":   invoice.Amount.String(),
		"category": invoice.Category,
		"status":   invoice.Status,
	}))
	return nil
}

func (s *invoiceServiceImpl) extract(ctx context.Context, invoice *entity.Invoice) (*port.ExtractionResult, error) {
	if s.extractor == nil {
		return nil, ErrAIUnavailable
	}
	if invoice.FileKey == "" {
		return nil, errors.New("invoice has no stored file")
	}

	content, err := s.storage.Read(ctx, invoice.FileKey)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	doc, err := s.renderer.Prepare(ctx, content, invoice.FileName, invoice.FileType)
	if err != nil {
		return nil, fmt.Errorf("prepare document: %w", err)
	}

	switch doc.Kind {
	case port.DocumentText:
		return s.extractor.ExtractFromText(ctx, doc.Text)
	default:
		return s.extractor.ExtractFromImage(ctx, doc.Image, doc.MimeType)
	}
}

func (s *invoiceServiceImpl) failExtraction(ctx context.Context, invoice *entity.Invoice, cause error) error {
	s.logger.Error("Invoice extraction failed", "error", cause, "invoice_id", invoice.ID)

	next, err := s.workflow.Next(ctx, invoice.Status, workflow.TriggerExtractFail)
	if err != nil {
		return fmt.Errorf("transition after failed extraction: %w", err)
	}
	invoice.Status = next
	invoice.ErrorMessage = cause.Error()
	invoice.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, invoice); err != nil {
		return fmt.Errorf("save extraction failure: %w", err)
	}

	s.dispatch(ctx, event.NewEvent(event.TypeExtractionFailed, invoice.UserID, invoice.ID, map[string]interface{}{
		"error": invoice.ErrorMessage,
	}))
	return fmt.Errorf("extract invoice %s: %w", invoice.ID, cause)
}

// Get returns one record of the user
func (s *invoiceServiceImpl) Get(ctx context.Context, userID, id string) (*entity.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if invoice == nil {
		return nil, entity.ErrNotFound
	}
	return invoice, nil
}

// Detail returns the record with the transitions a user may request next
func (s *invoiceServiceImpl) Detail(ctx context.Context, userID, id string) (*InvoiceDetail, error) {
	invoice, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: invoice, Actions: s.workflow.UserActions(invoice.Status)}, nil
}

// List returns a page of the user's records and the total match count
func (s *invoiceServiceImpl) List(ctx context.Context, filter entity.InvoiceFilter) (*InvoicePage, error) {
	if filter.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrInvalidInput)
	}
	for i, st := range filter.Statuses {
		filter.Statuses[i] = entity.NormalizeStatus(st)
	}
	if filter.Category != "" {
		filter.Category = entity.NormalizeCategory(filter.Category)
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	return &InvoicePage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Update applies editor changes. Editing a validated record sends it back to draft.
func (s *invoiceServiceImpl) Update(ctx context.Context, userID, id string, patch entity.InvoicePatch) (*entity.Invoice, error) {
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}
	if patch.Amount != nil {
		if err := utils.ValidateAmount(*patch.Amount); err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
		}
	}

	invoice, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next, err := s.workflow.Next(ctx, invoice.Status, workflow.TriggerEdit)
	if err != nil {
		return nil, err
	}

	patch.Apply(invoice)
	invoice.Vendor = utils.SanitizeString(strings.TrimSpace(invoice.Vendor))
	invoice.Description = utils.SanitizeString(strings.TrimSpace(invoice.Description))
	invoice.Currency = strings.ToUpper(invoice.Currency)
	invoice.Category = entity.NormalizeCategory(invoice.Category)
	invoice.Status = next
	invoice.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	s.dispatch(ctx, event.NewEvent(event.TypeInvoiceUpdated, userID, id, map[string]interface{}{
		"status": invoice.Status,
	}))
	return invoice, nil
}

// Transition fires a user trigger on the record's workflow
func (s *invoiceServiceImpl) Transition(ctx context.Context, userID, id string, trigger workflow.Trigger) (*entity.Invoice, error) {
	if !trigger.IsUserTrigger() {
		return nil, fmt.Errorf("%w: trigger %q is not available", workflow.ErrInvalidTransition, trigger)
	}

	invoice, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	from := invoice.Status
	next, err := s.workflow.Next(ctx, from, trigger)
	if err != nil {
		return nil, err
	}

	invoice.Status = next
	if trigger == workflow.TriggerRetry {
		invoice.ErrorMessage = ""
	}
	invoice.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	s.logger.Info("Invoice status changed", "invoice_id", id, "from", from, "to", next, "trigger", trigger.String())
	s.dispatch(ctx, event.NewEvent(event.TypeInvoiceStatusChanged, userID, id, map[string]interface{}{
		"from":    from,
		"to":      next,
		"trigger": trigger.String(),
	}))
	return invoice, nil
}

// Enhance asks the text generator for suggestions and raises the record's
// confidence by EnhanceConfidenceBoost.
func (s *invoiceServiceImpl) Enhance(ctx context.Context, userID, id string) (*EnhanceResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}

	invoice, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	prompt, err := enhancePrompt(invoice)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Error("Failed to generate enhancement", "error", err, "invoice_id", id)
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	confidence := min(invoice.ConfidenceOr(entity.DefaultConfidence)+EnhanceConfidenceBoost, 100)
	invoice.AIConfidence = &confidence
	invoice.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	s.dispatch(ctx, event.NewEvent(event.TypeInvoiceUpdated, userID, id, map[string]interface{}{
		"ai_confidence": confidence,
	}))
	return &EnhanceResult{Invoice: invoice, Suggestions: strings.TrimSpace(suggestions)}, nil
}

// Import stores legacy browser records in one transaction. Records that
// fail normalization are counted and skipped.
func (s *invoiceServiceImpl) Import(ctx context.Context, userID string, records []entity.RawInvoice) (*ImportResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrInvalidInput)
	}

	now := s.now()
	result := &ImportResult{}
	valid := make([]*entity.Invoice, 0, len(records))

	for i, raw := range records {
		invoice, err := entity.Normalize(raw, userID, now)
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, ImportError{Index: i, Reason: err.Error()})
			continue
		}
		// legacy ids are browser timestamps and not unique across users
		invoice.ID = ""
		if raw.Source == "" {
			invoice.Source = entity.SourceImport
		}
		invoice.Vendor = utils.SanitizeString(invoice.Vendor)
		valid = append(valid, invoice)
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		for _, invoice := range valid {
			if err := s.repo.Create(ctx, invoice); err != nil {
				return fmt.Errorf("create invoice: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to import invoices", "error", err, "user_id", userID)
		return nil, err
	}
	result.Imported = len(valid)

	s.logger.Info("Invoices imported", "user_id", userID, "imported", result.Imported, "rejected", result.Rejected)
	s.dispatch(ctx, event.NewEvent(event.TypeInvoicesImported, userID, "", map[string]interface{}{
		"imported": result.Imported,
		"rejected": result.Rejected,
	}))
	return result, nil
}

// dispatch delivers evt to in-process handlers. Handler errors are logged
// and never fail the operation that produced the event.
func (s *invoiceServiceImpl) dispatch(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to dispatch event", "error", err, "event_type", evt.Type.String(), "invoice_id", evt.InvoiceID)
	}
}

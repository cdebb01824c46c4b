package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/invoice-insights/internal/application/service"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
	"github.com/garyjia/invoice-insights/internal/domain/workflow"
)

// List paging limits
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Version is reported by the health endpoint
var Version = "dev"

// Handlers contains all HTTP request handlers
type Handlers struct {
	invoiceService   service.InvoiceService
	analyticsService service.AnalyticsService
	insightService   service.InsightService
	exportService    service.ExportService
	schemaVersion    SchemaVersionFunc
	maxUploadSize    int64
	logger           Logger
	now              func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	invoiceService service.InvoiceService,
	analyticsService service.AnalyticsService,
	insightService service.InsightService,
	exportService service.ExportService,
	schemaVersion SchemaVersionFunc,
	maxUploadSize int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		invoiceService:   invoiceService,
		analyticsService: analyticsService,
		insightService:   insightService,
		exportService:    exportService,
		schemaVersion:    schemaVersion,
		maxUploadSize:    maxUploadSize,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version"`
	SchemaVersion uint   `json:"schema_version"`
}

// TransitionRequest is the body of POST /api/invoices/:id/transitions
type TransitionRequest struct {
	Trigger string `json:"trigger" binding:"required"`
}

// importEnvelope is the object form of an import body
type importEnvelope struct {
	Invoices []entity.RawInvoice `json:"invoices"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().Format(time.RFC3339),
		Version:   Version,
	}

	if h.schemaVersion != nil {
		v, err := h.schemaVersion()
		if err != nil {
			h.logger.Error("Failed to read schema version", "error", err)
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "database unavailable",
			})
			return
		}
		response.SchemaVersion = v
	}

	ok(c, response)
}

// UploadInvoice handles POST /api/invoices
func (h *Handlers) UploadInvoice(c *gin.Context) {
	// allow for multipart framing on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if header.Size > h.maxUploadSize {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", h.maxUploadSize))
		return
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, "read upload", err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		h.respondError(c, "read upload", err)
		return
	}

	invoice, err := h.invoiceService.Upload(c.Request.Context(), service.UploadInput{
		UserID:      currentUser(c),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Source:      c.PostForm("source"),
		Content:     content,
	})
	if err != nil {
		h.respondError(c, "upload", err)
		return
	}

	c.JSON(http.StatusAccepted, Response{Success: true, Data: invoice})
}

// ImportInvoices handles POST /api/invoices/import. The body is either a
// JSON array of legacy records or an object with an "invoices" array.
func (h *Handlers) ImportInvoices(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	records, err := decodeImport(body)
	if err != nil {
		badRequest(c, "invalid import payload: "+err.Error())
		return
	}

	result, err := h.invoiceService.Import(c.Request.Context(), currentUser(c), records)
	if err != nil {
		h.respondError(c, "import", err)
		return
	}

	ok(c, result)
}

func decodeImport(body []byte) ([]entity.RawInvoice, error) {
	trimmed := bytes.TrimSpace(body)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env importEnvelope
		if err := dec.Decode(&env); err != nil {
			return nil, err
		}
		return env.Invoices, nil
	}

	var records []entity.RawInvoice
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	filter := entity.InvoiceFilter{
		UserID:   currentUser(c),
		Category: c.Query("category"),
		Search:   strings.TrimSpace(c.Query("q")),
	}

	for _, v := range c.QueryArray("status") {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}

	var err error
	if filter.Limit, err = intQuery(c, "limit", DefaultPageSize); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.Limit <= 0 || filter.Limit > MaxPageSize {
		filter.Limit = DefaultPageSize
	}
	if filter.Offset, err = intQuery(c, "offset", 0); err != nil || filter.Offset < 0 {
		badRequest(c, "invalid offset")
		return
	}

	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if v := c.Query(name); v != "" {
			t, parsed := entity.ParseDate(v)
			if !parsed {
				badRequest(c, "invalid "+name+" date")
				return
			}
			*dst = &t
		}
	}

	page, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "list invoices", err)
		return
	}

	ok(c, page)
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	detail, err := h.invoiceService.Detail(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.respondError(c, "get invoice", err)
		return
	}
	ok(c, detail)
}

// UpdateInvoice handles PATCH /api/invoices/:id
func (h *Handlers) UpdateInvoice(c *gin.Context) {
	var patch entity.InvoicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), currentUser(c), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, "update invoice", err)
		return
	}
	ok(c, invoice)
}

// TransitionInvoice handles POST /api/invoices/:id/transitions
func (h *Handlers) TransitionInvoice(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "trigger is required")
		return
	}

	trigger := workflow.Trigger(strings.ToUpper(strings.TrimSpace(req.Trigger)))
	invoice, err := h.invoiceService.Transition(c.Request.Context(), currentUser(c), c.Param("id"), trigger)
	if err != nil {
		h.respondError(c, "transition invoice", err)
		return
	}
	ok(c, invoice)
}

// EnhanceInvoice handles POST /api/invoices/:id/enhance
func (h *Handlers) EnhanceInvoice(c *gin.Context) {
	result, err := h.invoiceService.Enhance(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.respondError(c, "enhance invoice", err)
		return
	}
	ok(c, result)
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

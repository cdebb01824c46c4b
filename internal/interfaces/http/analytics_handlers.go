package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/infrastructure/export"
)

// Summary handles GET /api/analytics/summary
func (h *Handlers) Summary(c *gin.Context) {
	summary, err := h.analyticsService.Summary(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, "summary", err)
		return
	}
	ok(c, summary)
}

// Monthly handles GET /api/analytics/monthly
func (h *Handlers) Monthly(c *gin.Context) {
	months, err := intQuery(c, "months", 0)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	series, err := h.analyticsService.Monthly(c.Request.Context(), currentUser(c), months)
	if err != nil {
		h.respondError(c, "monthly", err)
		return
	}
	ok(c, series)
}

// Top handles GET /api/analytics/top
func (h *Handlers) Top(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	top, err := h.analyticsService.Top(c.Request.Context(), currentUser(c), c.Query("by"), limit)
	if err != nil {
		h.respondError(c, "top", err)
		return
	}
	ok(c, top)
}

// Confidence handles GET /api/analytics/confidence
func (h *Handlers) Confidence(c *gin.Context) {
	histogram, err := h.analyticsService.Confidence(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, "confidence", err)
		return
	}
	ok(c, histogram)
}

// Forecast handles GET /api/analytics/forecast
func (h *Handlers) Forecast(c *gin.Context) {
	horizon, err := intQuery(c, "horizon", 0)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var seed *int64
	if v := c.Query("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "invalid seed")
			return
		}
		seed = &n
	}

	points, err := h.analyticsService.Forecast(c.Request.Context(), currentUser(c), horizon, seed)
	if err != nil {
		h.respondError(c, "forecast", err)
		return
	}
	ok(c, points)
}

// Dashboard handles GET /api/analytics/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	dashboard, err := h.analyticsService.Dashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, "dashboard", err)
		return
	}
	ok(c, dashboard)
}

// Compliance handles GET /api/analytics/compliance
func (h *Handlers) Compliance(c *gin.Context) {
	findings, err := h.analyticsService.Compliance(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, "compliance", err)
		return
	}
	ok(c, findings)
}

// Report handles GET /api/reports
func (h *Handlers) Report(c *gin.Context) {
	var q analytics.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	report, err := h.analyticsService.Report(c.Request.Context(), currentUser(c), q)
	if err != nil {
		h.respondError(c, "report", err)
		return
	}
	ok(c, report)
}

// ExportReport handles GET /api/reports/export. The file is rendered into
// memory first so a failure can still be reported as JSON.
func (h *Handlers) ExportReport(c *gin.Context) {
	var q analytics.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	format := c.DefaultQuery("format", export.FormatCSV)

	var buf bytes.Buffer
	if err := h.exportService.Export(c.Request.Context(), currentUser(c), q, format, &buf); err != nil {
		h.respondError(c, "export", err)
		return
	}

	contentType, known := export.ContentTypes[format]
	if !known {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(format, h.now())+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Insights handles POST /api/insights
func (h *Handlers) Insights(c *gin.Context) {
	report, err := h.insightService.Generate(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, "insights", err)
		return
	}
	ok(c, report)
}

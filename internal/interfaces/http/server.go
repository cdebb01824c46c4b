// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SchemaVersionFunc reports the applied database migration version
type SchemaVersionFunc func() (uint, error)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  60 * time.Second,
		MaxUploadSize: service.DefaultMaxUploadSize,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	identity   port.IdentityProvider
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	invoiceService service.InvoiceService,
	analyticsService service.AnalyticsService,
	insightService service.InsightService,
	exportService service.ExportService,
	identity port.IdentityProvider,
	schemaVersion SchemaVersionFunc,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = service.DefaultMaxUploadSize
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		identity: identity,
		logger:   logger,
		handlers: NewHandlers(
			invoiceService,
			analyticsService,
			insightService,
			exportService,
			schemaVersion,
			config.MaxUploadSize,
			logger,
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware(s.config.AllowedOrigins))
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.identity, s.logger))
	{
		api.POST("/invoices", h.UploadInvoice)
		api.POST("/invoices/import", h.ImportInvoices)
		api.GET("/invoices", h.ListInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.PATCH("/invoices/:id", h.UpdateInvoice)
		api.POST("/invoices/:id/transitions", h.TransitionInvoice)
		api.POST("/invoices/:id/enhance", h.EnhanceInvoice)

		analytics := api.Group("/analytics")
		analytics.GET("/summary", h.Summary)
		analytics.GET("/monthly", h.Monthly)
		analytics.GET("/top", h.Top)
		analytics.GET("/confidence", h.Confidence)
		analytics.GET("/forecast", h.Forecast)
		analytics.GET("/dashboard", h.Dashboard)
		analytics.GET("/compliance", h.Compliance)

		api.GET("/reports", h.Report)
		api.GET("/reports/export", h.ExportReport)
		api.POST("/insights", h.Insights)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

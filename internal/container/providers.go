package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/dispatcher"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/application/service"
	"github.com/garyjia/invoice-insights/internal/domain/event"
	"github.com/garyjia/invoice-insights/internal/domain/workflow"
	"github.com/garyjia/invoice-insights/internal/infrastructure/auth"
	"github.com/garyjia/invoice-insights/internal/infrastructure/cache"
	"github.com/garyjia/invoice-insights/internal/infrastructure/document"
	"github.com/garyjia/invoice-insights/internal/infrastructure/export"
	"github.com/garyjia/invoice-insights/internal/infrastructure/external/gigachat"
	"github.com/garyjia/invoice-insights/internal/infrastructure/external/openai"
	"github.com/garyjia/invoice-insights/internal/infrastructure/messaging"
	"github.com/garyjia/invoice-insights/internal/infrastructure/persistence/repository"
	"github.com/garyjia/invoice-insights/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/invoice-insights/internal/infrastructure/storage"
	"github.com/garyjia/invoice-insights/internal/infrastructure/worker"
	httpserver "github.com/garyjia/invoice-insights/internal/interfaces/http"
	"github.com/garyjia/invoice-insights/pkg/database"
	"github.com/garyjia/invoice-insights/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Invoice port.InvoiceRepository
}

// AIBundle holds the AI collaborators. Either field may be nil when the
// configured provider cannot serve it.
type AIBundle struct {
	Extractor port.AIExtractor
	Generator port.TextGenerator

	closers []func() error
}

// CacheBundle holds the report cache and the worker claim locker.
// Locker and Redis are nil when Redis is not configured.
type CacheBundle struct {
	Reports port.ReportCache
	Locker  port.Locker
	Redis   *redis.Client
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Invoice   service.InvoiceService
	Analytics service.AnalyticsService
	Insight   service.InsightService
	Export    service.ExportService
}

// ServiceDeps holds what ProvideServices needs
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Storage    port.ObjectStorage
	Renderer   port.DocumentRenderer
	AI         *AIBundle
	Cache      *CacheBundle
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Logger     *zap.Logger
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// the connection in a transaction manager.
func ProvideDatabase(cfg *database.Config, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(*cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Invoice: repository.NewInvoiceRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates the object storage selected by cfg.Driver
func ProvideStorage(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (port.ObjectStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch cfg.Driver {
	case StorageLocal:
		return storage.NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL, logger), nil
	case StorageGCS:
		gcs, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsJSON: cfg.GCSCredentialsJSON,
		}, logger)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProvideRenderer creates the document renderer used before extraction
func ProvideRenderer(cfg *document.Config, logger *zap.Logger) port.DocumentRenderer {
	if cfg == nil || cfg.MaxDimension <= 0 {
		def := document.DefaultConfig()
		cfg = &def
	}
	return document.NewRenderer(*cfg, logger)
}

// ProvideAI creates the extractor and text generator for the configured
// provider. OpenAI extraction is wired whenever an OpenAI key is present,
// so a GigaChat deployment can still extract invoices.
func ProvideAI(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*AIBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ai config is required")
	}

	bundle := &AIBundle{}
	if cfg.Provider == ProviderNone {
		logger.Warn("AI provider disabled, uploads will fail extraction")
		return bundle, nil
	}

	if cfg.OpenAI.APIKey != "" {
		prompts, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		client, err := openai.NewClient(cfg.OpenAI, prompts, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		bundle.Extractor = client
		bundle.Generator = client
	}

	if cfg.Provider == ProviderGigaChat {
		gen, err := gigachat.NewGenerator(ctx, cfg.GigaChat, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gigachat generator: %w", err)
		}
		bundle.Generator = gen
		bundle.closers = append(bundle.closers, gen.Close)
	}

	if bundle.Extractor == nil {
		logger.Warn("No extractor configured, uploads will fail extraction",
			zap.String("provider", cfg.Provider))
	}
	return bundle, nil
}

// Close releases provider connections
func (b *AIBundle) Close() error {
	var firstErr error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ProvideCache connects to Redis when an address is configured and falls
// back to an in-process report cache otherwise.
func ProvideCache(ctx context.Context, cfg *cache.Config, logger *zap.Logger) (*CacheBundle, error) {
	if cfg == nil || cfg.Address == "" {
		logger.Info("Redis not configured, using in-memory report cache")
		return &CacheBundle{Reports: cache.NewMemoryReportCache()}, nil
	}

	rdb, err := cache.NewRedisClient(ctx, *cfg, logger)
	if err != nil {
		return nil, err
	}

	return &CacheBundle{
		Reports: cache.NewRedisReportCache(rdb, cfg.Prefix, logger),
		Locker:  cache.NewRedisLocker(rdb, cfg.Prefix),
		Redis:   rdb,
	}, nil
}

// ProvidePublisher connects to the broker when a URL is configured
func ProvidePublisher(cfg *messaging.Config, logger *zap.Logger) (port.EventPublisher, error) {
	if cfg == nil || cfg.URL == "" {
		logger.Info("AMQP not configured, events stay in-process")
		return messaging.NoopPublisher{}, nil
	}
	publisher, err := messaging.NewAMQPPublisher(*cfg, logger)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// ProvideIdentity creates the bearer token verifier
func ProvideIdentity(cfg *AuthConfig) (port.IdentityProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	provider, err := auth.NewJWTProvider(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// ProvideDispatcher creates a new event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewKVLogger(logger))), nil
}

// RegisterEventHandlers subscribes the cache invalidation and broker bridge
// handlers. Every event type invalidates the user's cached reports before
// it is published. An invalidation failure is logged and does not keep the
// event from reaching the broker.
func RegisterEventHandlers(disp dispatcher.Dispatcher, analytics service.AnalyticsService, publisher port.EventPublisher, logger *zap.Logger) {
	for _, t := range event.AllTypes() {
		disp.Subscribe(t, "report-cache-invalidation", func(ctx context.Context, evt *event.Event) error {
			if err := analytics.Invalidate(ctx, evt.UserID); err != nil {
				logger.Warn("Failed to invalidate report cache",
					zap.String("event_type", evt.Type.String()),
					zap.String("user_id", evt.UserID),
					zap.Error(err))
			}
			return nil
		})
	}

	disp.SubscribeAll("event-publisher", func(ctx context.Context, evt *event.Event) error {
		return publisher.Publish(ctx, evt)
	})
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.Repos.Invoice == nil {
		return nil, fmt.Errorf("invoice repository is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := utils.NewKVLogger(deps.Logger)
	ai := deps.AI
	if ai == nil {
		ai = &AIBundle{}
	}

	var reports port.ReportCache
	if deps.Cache != nil {
		reports = deps.Cache.Reports
	}

	invoiceService := service.NewInvoiceService(
		service.InvoiceServiceConfig{
			MaxUploadSize: deps.Config.Server.MaxUploadSize,
			ObjectKey:     storage.ObjectKey,
		},
		deps.Repos.Invoice,
		deps.TxManager,
		deps.Storage,
		deps.Renderer,
		ai.Extractor,
		ai.Generator,
		workflow.NewInvoiceWorkflow(deps.Config.AutoValidateThreshold),
		deps.Dispatcher,
		logger,
	)

	analyticsService := service.NewAnalyticsService(deps.Config.Analytics, deps.Repos.Invoice, reports, logger)

	writers := map[string]port.ReportWriter{
		export.FormatCSV:  export.CSVWriter{},
		export.FormatXLSX: export.NewXLSXWriter(deps.Logger),
	}

	return &ServiceBundle{
		Invoice:   invoiceService,
		Analytics: analyticsService,
		Insight:   service.NewInsightService(analyticsService, ai.Generator, logger),
		Export:    service.NewExportService(analyticsService, writers, []string{export.FormatCSV, export.FormatXLSX}, logger),
	}, nil
}

// ProvideWorkers creates the worker manager with the extraction worker
// registered. Workers are not started.
func ProvideWorkers(cfg *WorkerConfig, repos *RepositoryBundle, invoices service.InvoiceService, locker port.Locker, logger *zap.Logger) (*worker.WorkerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if repos == nil || repos.Invoice == nil {
		return nil, fmt.Errorf("invoice repository is required")
	}

	manager := worker.NewWorkerManager(logger)
	if !cfg.Enabled {
		logger.Info("Extraction worker disabled")
		return manager, nil
	}

	manager.Register(worker.NewExtractionWorker(cfg.Extraction, repos.Invoice, invoices, locker, logger))
	return manager, nil
}

// ProvideHTTPServer creates the HTTP server over the service bundle
func ProvideHTTPServer(cfg *httpserver.ServerConfig, services *ServiceBundle, identity port.IdentityProvider, db *database.DB, logger *zap.Logger) (*httpserver.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	var schemaVersion httpserver.SchemaVersionFunc
	if db != nil {
		schemaVersion = db.SchemaVersion
	}

	return httpserver.NewServer(
		*cfg,
		services.Invoice,
		services.Analytics,
		services.Insight,
		services.Export,
		identity,
		schemaVersion,
		utils.NewKVLogger(logger),
	), nil
}

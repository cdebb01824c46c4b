package container

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/dispatcher"
	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/infrastructure/worker"
	httpserver "github.com/garyjia/invoice-insights/internal/interfaces/http"
	"github.com/garyjia/invoice-insights/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *DatabaseBundle
	repositories *RepositoryBundle
	cache        *CacheBundle

	// Infrastructure - External
	storage   port.ObjectStorage
	renderer  port.DocumentRenderer
	ai        *AIBundle
	publisher port.EventPublisher
	identity  port.IdentityProvider

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	workers *worker.WorkerManager
	server  *httpserver.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components. Workers are created but not started;
// call RunWorkers for that.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Cache and locks
// 3. Storage, renderer and AI clients
// 4. Event publisher, identity and dispatcher
// 5. Application services and event handlers
// 6. Workers and HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		init func() error
	}{
		{"database", c.initDatabase},
		{"cache", c.initCache},
		{"external clients", c.initExternalClients},
		{"messaging", c.initMessaging},
		{"services", c.initServices},
		{"interfaces", c.initInterfaces},
	}

	for _, step := range steps {
		if err := step.init(); err != nil {
			c.logger.Error("Container initialization failed", zap.String("step", step.name), zap.Error(err))
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Container step initialized", zap.String("step", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// RunWorkers starts the background workers and blocks until ctx is done,
// then stops them.
func (c *Container) RunWorkers(ctx context.Context) error {
	if !c.ready.Load() {
		return fmt.Errorf("container not started")
	}

	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	<-ctx.Done()
	return c.workers.StopAll()
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized, newest first
func (c *Container) teardown() []error {
	var errs []error
	closeStep := func(name string, fn func() error) {
		if err := fn(); err != nil {
			c.logger.Error("Failed to close component", zap.String("component", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			return
		}
		c.logger.Info("Component closed", zap.String("component", name))
	}

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil && c.workers.IsRunning() {
		closeStep("workers", c.workers.StopAll)
	}

	if c.dispatcher != nil {
		closeStep("dispatcher", c.dispatcher.Close)
	}

	if c.publisher != nil {
		closeStep("publisher", c.publisher.Close)
	}

	if c.ai != nil {
		closeStep("ai clients", c.ai.Close)
	}

	if closer, ok := c.storage.(io.Closer); ok {
		closeStep("storage", closer.Close)
	}

	if c.cache != nil && c.cache.Redis != nil {
		closeStep("redis", c.cache.Redis.Close)
	}

	if c.database != nil {
		closeStep("database", c.database.DB.Close)
	}

	c.workers, c.dispatcher, c.publisher, c.ai, c.storage, c.cache, c.database = nil, nil, nil, nil, nil, nil, nil
	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	// Check database
	if c.database == nil {
		set("database", fmt.Errorf("not initialized"))
	} else if err := c.database.DB.PingContext(ctx); err != nil {
		set("database", fmt.Errorf("ping failed: %w", err))
	} else {
		set("database", nil)
	}

	// Redis is optional
	if c.cache != nil && c.cache.Redis != nil {
		if err := c.cache.Redis.Ping(ctx).Err(); err != nil {
			set("redis", fmt.Errorf("ping failed: %w", err))
		} else {
			set("redis", nil)
		}
	}

	if c.ai != nil && c.ai.Extractor == nil {
		status.Components["extractor"] = ComponentHealth{Healthy: false, Message: "not configured"}
	}

	// Check workers
	if c.workers == nil {
		set("workers", fmt.Errorf("not initialized"))
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("worker count: %d, running: %t", c.workers.GetWorkerCount(), c.workers.IsRunning()),
		}
	}

	if c.dispatcher == nil {
		set("dispatcher", fmt.Errorf("not initialized"))
	} else {
		set("dispatcher", nil)
	}

	return status
}

// initDatabase opens the database and creates repositories.
func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle

	repos, err := ProvideRepositories(bundle.DB.DB, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initCache() error {
	bundle, err := ProvideCache(c.ctx, &c.config.Redis, c.logger)
	if err != nil {
		return err
	}
	c.cache = bundle
	return nil
}

// initExternalClients creates object storage, the document renderer and
// the AI clients.
func (c *Container) initExternalClients() error {
	store, err := ProvideStorage(c.ctx, &c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.storage = store

	c.renderer = ProvideRenderer(&c.config.Document, c.logger)

	ai, err := ProvideAI(c.ctx, &c.config.AI, c.logger)
	if err != nil {
		return err
	}
	c.ai = ai
	return nil
}

func (c *Container) initMessaging() error {
	publisher, err := ProvidePublisher(&c.config.AMQP, c.logger)
	if err != nil {
		return err
	}
	c.publisher = publisher

	identity, err := ProvideIdentity(&c.config.Auth)
	if err != nil {
		return err
	}
	c.identity = identity

	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	return nil
}

// initServices creates application services and subscribes event handlers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.database.TransactionMgr,
		Storage:    c.storage,
		Renderer:   c.renderer,
		AI:         c.ai,
		Cache:      c.cache,
		Dispatcher: c.dispatcher,
		Config:     c.config,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	RegisterEventHandlers(c.dispatcher, services.Analytics, c.publisher, c.logger)
	return nil
}

func (c *Container) initInterfaces() error {
	workers, err := ProvideWorkers(&c.config.Worker, c.repositories, c.services.Invoice, c.cache.Locker, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	server, err := ProvideHTTPServer(&c.config.Server, c.services, c.identity, c.database.DB, c.logger)
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// Getters for accessing container components

// Database returns the database handle.
func (c *Container) Database() *database.DB {
	if c.database == nil {
		return nil
	}
	return c.database.DB
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// HTTPServer returns the HTTP server.
func (c *Container) HTTPServer() *httpserver.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// InvoiceProcessor runs extraction for one processing record
type InvoiceProcessor interface {
	Process(ctx context.Context, invoice *entity.Invoice) error
}

// ExtractionWorkerConfig holds configuration for the extraction worker
type ExtractionWorkerConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
}

// DefaultExtractionWorkerConfig returns default configuration
func DefaultExtractionWorkerConfig() ExtractionWorkerConfig {
	return ExtractionWorkerConfig{
		PollInterval:   5 * time.Second,
		BatchSize:      5,
		ProcessTimeout: 120 * time.Second,
		LockTTL:        3 * time.Minute,
	}
}

// WorkerStats is a snapshot of the worker's counters
type WorkerStats struct {
	Running        bool      `json:"running"`
	ProcessedCount int       `json:"processed_count"`
	FailedCount    int       `json:"failed_count"`
	SkippedCount   int       `json:"skipped_count"`
	LastRun        time.Time `json:"last_run"`
	StartTime      time.Time `json:"start_time"`
	LastError      string    `json:"last_error,omitempty"`
}

// ExtractionWorker picks up uploaded records in the processing state and
// hands them to the processor. When a locker is configured each record is
// claimed first, so several server instances can poll the same database.
type ExtractionWorker struct {
	config    ExtractionWorkerConfig
	repo      port.InvoiceRepository
	processor InvoiceProcessor
	locker    port.Locker
	logger    *zap.Logger

	mu        sync.RWMutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	stats     WorkerStats
}

// NewExtractionWorker creates a new extraction worker. locker may be nil.
func NewExtractionWorker(
	config ExtractionWorkerConfig,
	repo port.InvoiceRepository,
	processor InvoiceProcessor,
	locker port.Locker,
	logger *zap.Logger,
) *ExtractionWorker {
	defaults := DefaultExtractionWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = defaults.ProcessTimeout
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}

	return &ExtractionWorker{
		config:    config,
		repo:      repo,
		processor: processor,
		locker:    locker,
		logger:    logger,
	}
}

// Start begins the worker polling loop
func (w *ExtractionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("extraction worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.stats.StartTime = time.Now()
	w.mu.Unlock()

	w.logger.Info("ExtractionWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Bool("distributed_lock", w.locker != nil))

	w.wg.Add(1)
	go w.pollLoop()

	return nil
}

// Stop cancels polling and waits for the current batch to finish
func (w *ExtractionWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	stats := w.Stats()
	w.logger.Info("ExtractionWorker stopped",
		zap.Int("processed_count", stats.ProcessedCount),
		zap.Int("failed_count", stats.FailedCount))

	return nil
}

// Name returns the worker name for identification
func (w *ExtractionWorker) Name() string {
	return "ExtractionWorker"
}

// Stats returns a copy of the worker counters
func (w *ExtractionWorker) Stats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.stats
	s.Running = w.isRunning
	return s
}

func (w *ExtractionWorker) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			if _, err := w.RunOnce(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("Failed to process pending invoices", zap.Error(err))
			}
		}
	}
}

// RunOnce processes one batch of pending records and returns how many were
// handed to the processor.
func (w *ExtractionWorker) RunOnce(ctx context.Context) (int, error) {
	pending, err := w.repo.ListByStatus(ctx, entity.StatusProcessing, w.config.BatchSize)

	w.mu.Lock()
	w.stats.LastRun = time.Now()
	if err != nil {
		w.stats.LastError = err.Error()
	}
	w.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("list pending invoices: %w", err)
	}

	handled := 0
	for _, inv := range pending {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}
		if w.processOne(ctx, inv) {
			handled++
		}
	}
	return handled, nil
}

// processOne claims and processes inv. It reports false when the record was
// skipped because another instance holds it or it already left processing.
func (w *ExtractionWorker) processOne(ctx context.Context, inv *entity.Invoice) bool {
	if w.locker != nil {
		lock, err := w.locker.Obtain(ctx, "invoice:"+inv.ID, w.config.LockTTL)
		if err != nil {
			if !errors.Is(err, port.ErrLockNotObtained) {
				w.logger.Error("Failed to obtain invoice lock", zap.String("invoice_id", inv.ID), zap.Error(err))
			}
			w.recordSkip()
			return false
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				w.logger.Warn("Failed to release invoice lock", zap.String("invoice_id", inv.ID), zap.Error(err))
			}
		}()

		current, err := w.repo.GetByID(ctx, inv.UserID, inv.ID)
		if err != nil || current == nil || current.Status != entity.StatusProcessing {
			w.recordSkip()
			return false
		}
		inv = current
	}

	processCtx, cancel := context.WithTimeout(ctx, w.config.ProcessTimeout)
	defer cancel()

	w.logger.Info("Processing invoice",
		zap.String("invoice_id", inv.ID),
		zap.String("user_id", inv.UserID),
		zap.String("file_name", inv.FileName))

	err := w.processor.Process(processCtx, inv)

	w.mu.Lock()
	if err != nil {
		w.stats.FailedCount++
		w.stats.LastError = err.Error()
	} else {
		w.stats.ProcessedCount++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("Invoice extraction failed", zap.String("invoice_id", inv.ID), zap.Error(err))
	}
	return true
}

func (w *ExtractionWorker) recordSkip() {
	w.mu.Lock()
	w.stats.SkippedCount++
	w.mu.Unlock()
}

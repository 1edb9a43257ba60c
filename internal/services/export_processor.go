package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/sheets"
	"mywallet/internal/storage"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an item is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// ExportProcessor drains the export outbox into the spreadsheet ledger.
type ExportProcessor struct {
	storage  *storage.SQLiteRepository
	exporter sheets.LedgerExporter
	config   ExportProcessorConfig
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(
	storage *storage.SQLiteRepository,
	exporter sheets.LedgerExporter,
	config ExportProcessorConfig,
	logger *log.Logger,
) *ExportProcessor {
	return &ExportProcessor{
		storage:  storage,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentExport),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Items left in processing by a crash go back to pending.
	if err := p.storage.ResetStaleProcessing(ctx); err != nil {
		p.logger.WarnContext(ctx, "Failed to reset stale processing items", log.FieldError, err)
	}

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to end.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// ProcessBatch exports one batch of pending items and returns how many
// were handled.
func (p *ExportProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.storage.DequeueExportBatch(ctx, int64(p.config.BatchSize))
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to dequeue export batch", log.FieldError, err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	p.logger.DebugContext(ctx, "Processing export batch", "count", len(items))

	handled := 0
	for _, item := range items {
		select {
		case <-p.stopCh:
			return handled
		case <-ctx.Done():
			return handled
		default:
		}

		if err := p.storage.MarkExportProcessing(ctx, item.ID); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark item as processing",
				"id", item.ID, log.FieldError, err)
			continue
		}

		if err := p.export(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
		} else {
			p.handleSuccess(ctx, item)
		}
		handled++
	}
	return handled
}

func (p *ExportProcessor) export(ctx context.Context, item storage.ExportQueue) error {
	var t core.Transaction
	if err := json.Unmarshal([]byte(item.Payload), &t); err != nil {
		return fmt.Errorf("decode payload of item %d: %w", item.ID, err)
	}

	switch item.Operation {
	case storage.ExportOpSync:
		ref, err := p.exporter.Upsert(ctx, t)
		if err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
		p.logger.InfoContext(ctx, "Exported transaction",
			log.FieldTransactionID, item.TransactionID, "row_ref", ref)
	case storage.ExportOpDelete:
		if err := p.exporter.Delete(ctx, t); err != nil {
			return fmt.Errorf("clear ledger row: %w", err)
		}
		p.logger.InfoContext(ctx, "Removed exported transaction",
			log.FieldTransactionID, item.TransactionID)
	default:
		return fmt.Errorf("unknown operation: %s", item.Operation)
	}
	return nil
}

func (p *ExportProcessor) handleSuccess(ctx context.Context, item storage.ExportQueue) {
	if err := p.storage.MarkExportComplete(ctx, item.ID); err != nil {
		p.logger.ErrorContext(ctx, "Failed to mark export complete",
			"id", item.ID, log.FieldError, err)
	}
}

// handleFailure requeues the item until MaxRetries attempts have failed.
func (p *ExportProcessor) handleFailure(ctx context.Context, item storage.ExportQueue, processErr error) {
	attempt := item.Attempts + 1
	p.logger.WarnContext(ctx, "Export failed",
		"id", item.ID,
		log.FieldOperation, item.Operation,
		"attempt", attempt,
		log.FieldError, processErr)

	if attempt >= int64(p.config.MaxRetries) {
		if err := p.storage.MarkExportFailed(ctx, item.ID, processErr.Error()); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark export as failed",
				"id", item.ID, log.FieldError, err)
		}
		p.logger.ErrorContext(ctx, "Export item failed permanently after max retries",
			"id", item.ID,
			log.FieldTransactionID, item.TransactionID,
			"attempts", attempt)
		return
	}
	if err := p.storage.IncrementExportAttempt(ctx, item.ID, processErr.Error()); err != nil {
		p.logger.ErrorContext(ctx, "Failed to increment export attempt",
			"id", item.ID, log.FieldError, err)
	}
}

func (p *ExportProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	if err := p.storage.CleanupCompletedExports(ctx, cutoff); err != nil {
		p.logger.ErrorContext(ctx, "Failed to cleanup completed exports", log.FieldError, err)
	}
}

func (p *ExportProcessor) Stats(ctx context.Context) (storage.ExportQueueStats, error) {
	return p.storage.GetExportQueueStats(ctx)
}

// RetryFailed moves every failed item back to pending.
func (p *ExportProcessor) RetryFailed(ctx context.Context) (int64, error) {
	return p.storage.RetryFailedExports(ctx)
}

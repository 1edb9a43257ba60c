package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection serialises writers, so the read-modify-write of a
	// balance inside WithTx never interleaves with another request.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Queries returns the non-transactional query set.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// Ping checks the database is reachable; used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithTx runs fn inside one database transaction. Every write made through
// the Queries passed to fn commits together or not at all.
//
// fn must only use the Queries it is given: the pool holds one connection and
// the transaction owns it until WithTx returns.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DequeueExportBatch returns up to limit pending export items, oldest first.
func (r *SQLiteRepository) DequeueExportBatch(ctx context.Context, limit int64) ([]ExportQueue, error) {
	items, err := r.queries.DequeueExportBatch(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue export batch: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) MarkExportProcessing(ctx context.Context, id int64) error {
	if err := r.queries.MarkExportProcessing(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("mark export %d processing: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportComplete(ctx context.Context, id int64) error {
	if err := r.queries.MarkExportComplete(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("mark export %d complete: %w", id, err)
	}
	slog.DebugContext(ctx, "Export item completed", "id", id)
	return nil
}

// IncrementExportAttempt puts the item back in the queue for another try.
func (r *SQLiteRepository) IncrementExportAttempt(ctx context.Context, id int64, lastError string) error {
	if err := r.queries.IncrementExportAttempt(ctx, id, lastError, time.Now()); err != nil {
		return fmt.Errorf("increment export %d attempt: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id int64, lastError string) error {
	if err := r.queries.MarkExportFailed(ctx, id, lastError, time.Now()); err != nil {
		return fmt.Errorf("mark export %d failed: %w", id, err)
	}
	slog.WarnContext(ctx, "Export item marked as failed", "id", id, "error", lastError)
	return nil
}

// ResetStaleProcessing returns items left in processing by a crashed worker
// to the pending state.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	n, err := r.queries.ResetStaleExports(ctx)
	if err != nil {
		return fmt.Errorf("reset stale exports: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Reset stale export items", "count", n)
	}
	return nil
}

func (r *SQLiteRepository) CleanupCompletedExports(ctx context.Context, cutoff time.Time) error {
	n, err := r.queries.CleanupCompletedExports(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup completed exports: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Cleaned up completed export items", "count", n, "cutoff", cutoff)
	}
	return nil
}

func (r *SQLiteRepository) GetExportQueueStats(ctx context.Context) (ExportQueueStats, error) {
	stats, err := r.queries.GetExportQueueStats(ctx)
	if err != nil {
		return ExportQueueStats{}, fmt.Errorf("get export queue stats: %w", err)
	}
	return stats, nil
}

// RetryFailedExports requeues every failed item with a fresh attempt count.
func (r *SQLiteRepository) RetryFailedExports(ctx context.Context) (int64, error) {
	n, err := r.queries.RetryFailedExports(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("retry failed exports: %w", err)
	}
	return n, nil
}

package storage

import (
	"context"
	"database/sql"
	"time"
)

const (
	ExportOpSync   = "sync"
	ExportOpDelete = "delete"
)

// ExportQueue is one outbox row describing a change to mirror into the
// spreadsheet ledger.
type ExportQueue struct {
	ID            int64
	Operation     string
	TransactionID string
	// Payload is the JSON snapshot of the transaction at enqueue time.
	Payload   string
	Status    string
	Attempts  int64
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ExportQueueStats struct {
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
}

const enqueueExport = `INSERT INTO export_queue (operation, transaction_id, payload, status, attempts, created_at, updated_at)
VALUES (?, ?, ?, 'pending', 0, ?, ?)`

type EnqueueExportParams struct {
	Operation     string
	TransactionID string
	Payload       string
	Now           time.Time
}

func (q *Queries) EnqueueExport(ctx context.Context, arg EnqueueExportParams) error {
	now := toMillis(arg.Now)
	_, err := q.db.ExecContext(ctx, enqueueExport, arg.Operation, arg.TransactionID, arg.Payload, now, now)
	return err
}

const dequeueExportBatch = `SELECT id, operation, transaction_id, payload, status, attempts, last_error, created_at, updated_at
FROM export_queue
WHERE status = 'pending'
ORDER BY id
LIMIT ?`

func (q *Queries) DequeueExportBatch(ctx context.Context, limit int64) ([]ExportQueue, error) {
	rows, err := q.db.QueryContext(ctx, dequeueExportBatch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExportQueue
	for rows.Next() {
		var (
			i                ExportQueue
			lastErr          sql.NullString
			created, updated int64
		)
		if err := rows.Scan(&i.ID, &i.Operation, &i.TransactionID, &i.Payload, &i.Status, &i.Attempts, &lastErr, &created, &updated); err != nil {
			return nil, err
		}
		i.LastError = lastErr.String
		i.CreatedAt = fromMillis(created)
		i.UpdatedAt = fromMillis(updated)
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markExportProcessing = `UPDATE export_queue SET status = 'processing', updated_at = ? WHERE id = ?`

func (q *Queries) MarkExportProcessing(ctx context.Context, id int64, now time.Time) error {
	return expectOne(q.db.ExecContext(ctx, markExportProcessing, toMillis(now), id))
}

const markExportComplete = `UPDATE export_queue SET status = 'completed', updated_at = ?, processed_at = ? WHERE id = ?`

func (q *Queries) MarkExportComplete(ctx context.Context, id int64, now time.Time) error {
	ms := toMillis(now)
	return expectOne(q.db.ExecContext(ctx, markExportComplete, ms, ms, id))
}

const incrementExportAttempt = `UPDATE export_queue
SET status = 'pending', attempts = attempts + 1, last_error = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) IncrementExportAttempt(ctx context.Context, id int64, lastError string, now time.Time) error {
	return expectOne(q.db.ExecContext(ctx, incrementExportAttempt, lastError, toMillis(now), id))
}

const markExportFailed = `UPDATE export_queue
SET status = 'failed', attempts = attempts + 1, last_error = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) MarkExportFailed(ctx context.Context, id int64, lastError string, now time.Time) error {
	return expectOne(q.db.ExecContext(ctx, markExportFailed, lastError, toMillis(now), id))
}

const resetStaleExports = `UPDATE export_queue SET status = 'pending' WHERE status = 'processing'`

func (q *Queries) ResetStaleExports(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, resetStaleExports)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const cleanupCompletedExports = `DELETE FROM export_queue WHERE status = 'completed' AND processed_at < ?`

func (q *Queries) CleanupCompletedExports(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, cleanupCompletedExports, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getExportQueueStats = `SELECT
    COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
FROM export_queue`

func (q *Queries) GetExportQueueStats(ctx context.Context) (ExportQueueStats, error) {
	var s ExportQueueStats
	err := q.db.QueryRowContext(ctx, getExportQueueStats).Scan(&s.Pending, &s.Processing, &s.Completed, &s.Failed)
	return s, err
}

const retryFailedExports = `UPDATE export_queue SET status = 'pending', attempts = 0, updated_at = ? WHERE status = 'failed'`

func (q *Queries) RetryFailedExports(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, retryFailedExports, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package storage

import (
	"context"
	"time"

	"mywallet/internal/core"
)

const tokenColumns = `user_id, purpose, token_hash, created_at, expires_at`

func scanToken(row scanner) (core.TokenRecord, error) {
	var (
		r                core.TokenRecord
		purpose          string
		created, expires int64
	)
	if err := row.Scan(&r.UserID, &purpose, &r.TokenHash, &created, &expires); err != nil {
		return core.TokenRecord{}, notFound(err)
	}
	r.Purpose = core.TokenPurpose(purpose)
	r.CreatedAt = fromMillis(created)
	r.ExpiresAt = fromMillis(expires)
	return r, nil
}

const upsertToken = `INSERT INTO verification_tokens (` + tokenColumns + `)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, purpose) DO UPDATE SET
    token_hash = excluded.token_hash,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at`

// UpsertToken stores r in its (user, purpose) slot, replacing any previous
// token in a single statement.
func (q *Queries) UpsertToken(ctx context.Context, r core.TokenRecord) error {
	_, err := q.db.ExecContext(ctx, upsertToken,
		r.UserID, string(r.Purpose), r.TokenHash, toMillis(r.CreatedAt), toMillis(r.ExpiresAt))
	return err
}

const getToken = `SELECT ` + tokenColumns + ` FROM verification_tokens WHERE user_id = ? AND purpose = ?`

func (q *Queries) GetToken(ctx context.Context, userID string, purpose core.TokenPurpose) (core.TokenRecord, error) {
	return scanToken(q.db.QueryRowContext(ctx, getToken, userID, string(purpose)))
}

const deleteToken = `DELETE FROM verification_tokens WHERE user_id = ? AND purpose = ?`

// DeleteToken is a no-op when the slot is already empty.
func (q *Queries) DeleteToken(ctx context.Context, userID string, purpose core.TokenPurpose) error {
	_, err := q.db.ExecContext(ctx, deleteToken, userID, string(purpose))
	return err
}

const listExpiredTokens = `SELECT ` + tokenColumns + ` FROM verification_tokens WHERE expires_at < ? ORDER BY expires_at`

func (q *Queries) ListExpiredTokens(ctx context.Context, now time.Time) ([]core.TokenRecord, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredTokens, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []core.TokenRecord
	for rows.Next() {
		r, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

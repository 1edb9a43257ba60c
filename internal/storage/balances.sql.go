package storage

import (
	"context"
	"time"

	"mywallet/internal/core"
)

const balanceColumns = `id, user_id, balance, created_at, updated_at`

func scanBalance(row scanner) (core.Balance, error) {
	var (
		b                core.Balance
		created, updated int64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Balance, &created, &updated); err != nil {
		return core.Balance{}, notFound(err)
	}
	b.CreatedAt = fromMillis(created)
	b.UpdatedAt = fromMillis(updated)
	return b, nil
}

func (q *Queries) listBalances(ctx context.Context, query string, args ...any) ([]core.Balance, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Balance{}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createBalance = `INSERT INTO balances (` + balanceColumns + `) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateBalance(ctx context.Context, b core.Balance) error {
	_, err := q.db.ExecContext(ctx, createBalance,
		b.ID, b.UserID, b.Balance, toMillis(b.CreatedAt), toMillis(b.UpdatedAt))
	return err
}

const getBalance = `SELECT ` + balanceColumns + ` FROM balances WHERE id = ?`

func (q *Queries) GetBalance(ctx context.Context, id string) (core.Balance, error) {
	return scanBalance(q.db.QueryRowContext(ctx, getBalance, id))
}

const getBalanceByUser = `SELECT ` + balanceColumns + ` FROM balances WHERE user_id = ?`

func (q *Queries) GetBalanceByUser(ctx context.Context, userID string) (core.Balance, error) {
	return scanBalance(q.db.QueryRowContext(ctx, getBalanceByUser, userID))
}

const listBalances = `SELECT ` + balanceColumns + ` FROM balances ORDER BY created_at`

func (q *Queries) ListBalances(ctx context.Context) ([]core.Balance, error) {
	return q.listBalances(ctx, listBalances)
}

const listBalancesByUser = `SELECT ` + balanceColumns + ` FROM balances
WHERE user_id = ?
  AND (? = 0 OR created_at >= ?)
  AND (? = 0 OR created_at <= ?)
ORDER BY created_at`

func (q *Queries) ListBalancesByUser(ctx context.Context, userID string, from, to time.Time) ([]core.Balance, error) {
	f, t := optionalMillis(from), optionalMillis(to)
	return q.listBalances(ctx, listBalancesByUser, userID, f, f, t, t)
}

const setBalanceAmount = `UPDATE balances SET balance = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetBalanceAmount(ctx context.Context, id string, amount int64, updatedAt time.Time) error {
	return expectOne(q.db.ExecContext(ctx, setBalanceAmount, amount, toMillis(updatedAt), id))
}

const deleteBalance = `DELETE FROM balances WHERE id = ? RETURNING ` + balanceColumns

func (q *Queries) DeleteBalance(ctx context.Context, id string) (core.Balance, error) {
	return scanBalance(q.db.QueryRowContext(ctx, deleteBalance, id))
}

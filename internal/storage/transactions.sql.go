package storage

import (
	"context"
	"time"

	"mywallet/internal/core"
)

const transactionColumns = `id, user_id, type, category, payment_method, amount, date, note, created_at`

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		typ           string
		date, created int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Category, &t.PaymentMethod, &t.Amount, &date, &t.Note, &created); err != nil {
		return core.Transaction{}, notFound(err)
	}
	t.Type = core.TransactionType(typ)
	t.Date = fromMillis(date)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, string(t.Type), t.Category, t.PaymentMethod, t.Amount,
		toMillis(t.Date), t.Note, toMillis(t.CreatedAt))
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE (? = '' OR type = ?)
ORDER BY date DESC, created_at DESC`

// ListTransactions returns every transaction, optionally restricted to typ.
func (q *Queries) ListTransactions(ctx context.Context, typ core.TransactionType) ([]core.Transaction, error) {
	return q.listTransactions(ctx, listTransactions, string(typ), string(typ))
}

const listTransactionsByUser = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ?
  AND (? = '' OR type = ?)
  AND (? = 0 OR created_at >= ?)
  AND (? = 0 OR created_at <= ?)
ORDER BY date DESC, created_at DESC`

type ListTransactionsByUserParams struct {
	UserID string
	Type   core.TransactionType
	// CreatedFrom and CreatedTo bound created_at; zero values leave that side open.
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (q *Queries) ListTransactionsByUser(ctx context.Context, arg ListTransactionsByUserParams) ([]core.Transaction, error) {
	from, to := optionalMillis(arg.CreatedFrom), optionalMillis(arg.CreatedTo)
	return q.listTransactions(ctx, listTransactionsByUser,
		arg.UserID, string(arg.Type), string(arg.Type), from, from, to, to)
}

const listTransactionsInRange = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ?
  AND (? = '' OR type = ?)
  AND date >= ? AND date <= ?
ORDER BY date ASC, created_at ASC`

type TransactionRangeParams struct {
	UserID string
	Type   core.TransactionType
	Start  time.Time
	End    time.Time
}

// ListTransactionsInRange filters on the occurrence date, both bounds inclusive.
func (q *Queries) ListTransactionsInRange(ctx context.Context, arg TransactionRangeParams) ([]core.Transaction, error) {
	return q.listTransactions(ctx, listTransactionsInRange,
		arg.UserID, string(arg.Type), string(arg.Type), toMillis(arg.Start), toMillis(arg.End))
}

const sumTransactionsByCategory = `SELECT category, COALESCE(SUM(amount), 0) AS total_amount
FROM transactions
WHERE user_id = ?
  AND (? = '' OR type = ?)
  AND date >= ? AND date <= ?
GROUP BY category
ORDER BY category`

func (q *Queries) SumTransactionsByCategory(ctx context.Context, arg TransactionRangeParams) ([]core.CategoryTotal, error) {
	rows, err := q.db.QueryContext(ctx, sumTransactionsByCategory,
		arg.UserID, string(arg.Type), string(arg.Type), toMillis(arg.Start), toMillis(arg.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.CategoryTotal{}
	for rows.Next() {
		var i core.CategoryTotal
		if err := rows.Scan(&i.Category, &i.TotalAmount); err != nil {
			return nil, err
		}
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

const sumSignedByUser = `SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)
FROM transactions
WHERE user_id = ?`

// SumSignedByUser is the balance implied by the user's transactions.
func (q *Queries) SumSignedByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumSignedByUser, userID).Scan(&total)
	return total, err
}

const updateTransaction = `UPDATE transactions
SET type = ?, category = ?, payment_method = ?, amount = ?, date = ?, note = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return expectOne(q.db.ExecContext(ctx, updateTransaction,
		string(t.Type), t.Category, t.PaymentMethod, t.Amount, toMillis(t.Date), t.Note, t.ID))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	return expectOne(q.db.ExecContext(ctx, deleteTransaction, id))
}

func optionalMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return toMillis(t)
}

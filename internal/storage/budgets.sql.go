package storage

import (
	"context"
	"time"

	"mywallet/internal/core"
)

const budgetColumns = `id, user_id, category, amount, spent_amount, start_date, end_date, note, created_at`

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b                       core.Budget
		start, end, createdAtMs int64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount, &b.SpentAmount, &start, &end, &b.Note, &createdAtMs); err != nil {
		return core.Budget{}, notFound(err)
	}
	b.StartDate = fromMillis(start)
	b.EndDate = fromMillis(end)
	b.CreatedAt = fromMillis(createdAtMs)
	return b, nil
}

func (q *Queries) listBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
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

const createBudget = `INSERT INTO budgets (` + budgetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, createBudget,
		b.ID, b.UserID, b.Category, b.Amount, b.SpentAmount,
		toMillis(b.StartDate), toMillis(b.EndDate), b.Note, toMillis(b.CreatedAt))
	return err
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id))
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY start_date, created_at`

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return q.listBudgets(ctx, listBudgets)
}

const listBudgetsByUser = `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ? ORDER BY start_date, created_at`

func (q *Queries) ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error) {
	return q.listBudgets(ctx, listBudgetsByUser, userID)
}

const listActiveBudgets = `SELECT ` + budgetColumns + ` FROM budgets
WHERE user_id = ?
  AND end_date >= ?
  AND (? = '' OR category = ? OR category = 'all')
ORDER BY start_date, created_at`

// ListActiveBudgets returns budgets that have not ended at now and that an
// expense in category would count against. An empty category returns every
// active budget of the user.
func (q *Queries) ListActiveBudgets(ctx context.Context, userID, category string, now time.Time) ([]core.Budget, error) {
	return q.listBudgets(ctx, listActiveBudgets, userID, toMillis(now), category, category)
}

const updateBudget = `UPDATE budgets
SET user_id = ?, category = ?, amount = ?, spent_amount = ?, start_date = ?, end_date = ?, note = ?
WHERE id = ?
RETURNING ` + budgetColumns

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, updateBudget,
		b.UserID, b.Category, b.Amount, b.SpentAmount,
		toMillis(b.StartDate), toMillis(b.EndDate), b.Note, b.ID))
}

const setBudgetSpent = `UPDATE budgets SET spent_amount = ? WHERE id = ? RETURNING ` + budgetColumns

func (q *Queries) SetBudgetSpent(ctx context.Context, id string, spent int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, setBudgetSpent, spent, id))
}

const addBudgetSpent = `UPDATE budgets SET spent_amount = spent_amount + ? WHERE id = ? RETURNING ` + budgetColumns

// AddBudgetSpent increments spent_amount in place.
func (q *Queries) AddBudgetSpent(ctx context.Context, id string, amount int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, addBudgetSpent, amount, id))
}

const deleteBudget = `DELETE FROM budgets WHERE id = ? RETURNING ` + budgetColumns

func (q *Queries) DeleteBudget(ctx context.Context, id string) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, deleteBudget, id))
}

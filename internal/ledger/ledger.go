// Package ledger keeps the derived state of a user's books in step with their
// transactions: the running balance and the spent amount of active budgets.
//
// Every function takes the *storage.Queries of the caller's unit of work so
// that the transaction row and its side effects commit together.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mywallet/internal/core"
	"mywallet/internal/storage"
)

// ApplyDelta adds signed to the user's balance, creating the balance record
// on first use. Callers compute signed with core.SignedAmount: amending a
// transaction passes signed(new) - signed(old), deleting passes the negated
// original contribution.
//
// ApplyDelta is not idempotent. Applying the same delta twice moves the
// balance twice.
func ApplyDelta(ctx context.Context, q *storage.Queries, userID string, signed int64, now time.Time) (core.Balance, error) {
	b, err := q.GetBalanceByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		b = core.Balance{
			ID:        uuid.NewString(),
			UserID:    userID,
			Balance:   signed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := q.CreateBalance(ctx, b); err != nil {
			return core.Balance{}, fmt.Errorf("create balance for user %s: %w", userID, err)
		}
		return b, nil
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("get balance for user %s: %w", userID, err)
	}

	next, ok := addChecked(b.Balance, signed)
	if !ok {
		return core.Balance{}, core.Validation(core.ErrAmountOverflow)
	}
	b.Balance = next
	b.UpdatedAt = now
	if err := q.SetBalanceAmount(ctx, b.ID, b.Balance, now); err != nil {
		return core.Balance{}, fmt.Errorf("update balance %s: %w", b.ID, err)
	}
	return b, nil
}

// SetBalance overwrites the balance record id with amount. It is the manual
// correction path; the transaction history is left alone.
func SetBalance(ctx context.Context, q *storage.Queries, id string, amount int64, now time.Time) (core.Balance, error) {
	if err := q.SetBalanceAmount(ctx, id, amount, now); err != nil {
		return core.Balance{}, fmt.Errorf("set balance %s: %w", id, err)
	}
	b, err := q.GetBalance(ctx, id)
	if err != nil {
		return core.Balance{}, fmt.Errorf("get balance %s: %w", id, err)
	}
	return b, nil
}

// Reconcile recomputes the user's balance from the transaction history and
// stores it, returning the new record and the correction that was applied.
func Reconcile(ctx context.Context, q *storage.Queries, userID string, now time.Time) (core.Balance, int64, error) {
	want, err := q.SumSignedByUser(ctx, userID)
	if err != nil {
		return core.Balance{}, 0, fmt.Errorf("sum transactions for user %s: %w", userID, err)
	}

	var have int64
	b, err := q.GetBalanceByUser(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return core.Balance{}, 0, fmt.Errorf("get balance for user %s: %w", userID, err)
	default:
		have = b.Balance
	}

	b, err = ApplyDelta(ctx, q, userID, want-have, now)
	if err != nil {
		return core.Balance{}, 0, err
	}
	return b, want - have, nil
}

// ApplySpend adds amount to the spent amount of every budget of the user that
// is still active at now and covers category, either by name or through the
// "all" wildcard. It returns the updated budgets; none matching is not an
// error.
func ApplySpend(ctx context.Context, q *storage.Queries, userID, category string, amount int64, now time.Time) ([]core.Budget, error) {
	if category == "" {
		return nil, nil
	}
	budgets, err := q.ListActiveBudgets(ctx, userID, category, now)
	if err != nil {
		return nil, fmt.Errorf("list active budgets for user %s: %w", userID, err)
	}

	updated := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if _, ok := addChecked(b.SpentAmount, amount); !ok {
			return nil, core.Validation(core.ErrAmountOverflow)
		}
		nb, err := q.AddBudgetSpent(ctx, b.ID, amount)
		if err != nil {
			return nil, fmt.Errorf("add spend to budget %s: %w", b.ID, err)
		}
		updated = append(updated, nb)
	}
	return updated, nil
}

func addChecked(a, b int64) (int64, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, false
	}
	return c, true
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mywallet/internal/core"
	"mywallet/internal/ledger"
	"mywallet/internal/log"
	"mywallet/internal/storage"
)

const (
	msgTxCreateFailed = "An error occurred while creating new Transaction record"
	msgTxReadFailed   = "An error occurred while retrieving transaction records"
	msgTxGetFailed    = "An error occurred while retrieving the transaction record"
	msgTxUpdateFailed = "An error occurred while updating the Transaction record"
	msgTxDeleteFailed = "An error occurred while deleting the Transaction record"
	msgTxNotFound     = "Transaction record not found"
)

// TransactionService records ledger entries and keeps the balance, budgets
// and export outbox consistent with them.
type TransactionService struct {
	repo     *storage.SQLiteRepository
	balances *BalanceCache
	logger   *log.StructuredLogger
	opts     options
}

func NewTransactionService(repo *storage.SQLiteRepository, balances *BalanceCache, logger *log.Logger, opts ...Option) *TransactionService {
	return &TransactionService{
		repo:     repo,
		balances: balances,
		logger:   log.NewStructuredLogger(logger),
		opts:     newOptions(opts),
	}
}

// TransactionPatch holds the fields of an amendment; nil fields keep their
// stored value.
type TransactionPatch struct {
	Type          *core.TransactionType
	Category      *string
	PaymentMethod *string
	Amount        *int64
	Date          *time.Time
	Note          *string
}

func (p TransactionPatch) apply(t core.Transaction) core.Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = strings.TrimSpace(*p.PaymentMethod)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Note != nil {
		t.Note = strings.TrimSpace(*p.Note)
	}
	return t
}

func normalize(t core.Transaction) (core.Transaction, error) {
	t.UserID = strings.TrimSpace(t.UserID)
	t.Category = strings.TrimSpace(t.Category)
	t.PaymentMethod = strings.TrimSpace(t.PaymentMethod)
	t.Note = strings.TrimSpace(t.Note)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.Validation(err)
	}
	t.Type, _ = core.ParseTransactionType(string(t.Type))
	return t, nil
}

// Create stores t and, in the same unit of work, moves the user's balance by
// its signed amount, adds expenses to every matching active budget and queues
// the ledger export.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t, err := normalize(t)
	if err != nil {
		return core.Transaction{}, err
	}
	now := s.opts.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now

	var (
		bal     core.Balance
		budgets []core.Budget
	)
	err = s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		var err error
		if bal, err = ledger.ApplyDelta(ctx, q, t.UserID, t.Signed(), now); err != nil {
			return err
		}
		if t.Type == core.Expense {
			if budgets, err = ledger.ApplySpend(ctx, q, t.UserID, t.Category, t.Amount, now); err != nil {
				return err
			}
		}
		return enqueueExport(ctx, q, storage.ExportOpSync, t, now)
	})
	if err != nil {
		return core.Transaction{}, s.writeFailed(ctx, log.OpCreate, t.ID, classify(err, msgTxCreateFailed))
	}
	s.balances.invalidate(t.UserID)

	s.logger.LogTransactionWritten(ctx, log.OpCreate, t.ID, t.UserID, string(t.Type), t.Category, t.Amount, bal.Balance, len(budgets))
	return t, nil
}

// Update amends transaction id. The balance moves by signed(new) -
// signed(old), which also covers a change of type. Budgets are not
// adjusted.
func (s *TransactionService) Update(ctx context.Context, id string, patch TransactionPatch) (core.Transaction, error) {
	now := s.opts.now()
	var (
		updated core.Transaction
		bal     core.Balance
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return notFoundAs(err, msgTxNotFound)
		}
		if updated, err = normalize(patch.apply(old)); err != nil {
			return err
		}
		if err := q.UpdateTransaction(ctx, updated); err != nil {
			return notFoundAs(err, msgTxNotFound)
		}
		if bal, err = ledger.ApplyDelta(ctx, q, old.UserID, updated.Signed()-old.Signed(), now); err != nil {
			return err
		}
		return enqueueExport(ctx, q, storage.ExportOpSync, updated, now)
	})
	if err != nil {
		return core.Transaction{}, s.writeFailed(ctx, log.OpUpdate, id, classify(err, msgTxUpdateFailed))
	}
	s.balances.invalidate(updated.UserID)

	s.logger.LogTransactionWritten(ctx, log.OpUpdate, updated.ID, updated.UserID, string(updated.Type), updated.Category, updated.Amount, bal.Balance, 0)
	return updated, nil
}

// Delete removes transaction id and reverses its contribution to the
// balance. Budget spend is left as it was.
func (s *TransactionService) Delete(ctx context.Context, id string) (core.Transaction, error) {
	now := s.opts.now()
	var (
		old core.Transaction
		bal core.Balance
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if old, err = q.GetTransaction(ctx, id); err != nil {
			return notFoundAs(err, msgTxNotFound)
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return notFoundAs(err, msgTxNotFound)
		}
		if bal, err = ledger.ApplyDelta(ctx, q, old.UserID, -old.Signed(), now); err != nil {
			return err
		}
		return enqueueExport(ctx, q, storage.ExportOpDelete, old, now)
	})
	if err != nil {
		return core.Transaction{}, s.writeFailed(ctx, log.OpDelete, id, classify(err, msgTxDeleteFailed))
	}
	s.balances.invalidate(old.UserID)

	s.logger.LogTransactionWritten(ctx, log.OpDelete, old.ID, old.UserID, string(old.Type), old.Category, old.Amount, bal.Balance, 0)
	return old, nil
}

// List returns every transaction of type typ, or all of them when typ is
// empty.
func (s *TransactionService) List(ctx context.Context, typ core.TransactionType) ([]core.Transaction, error) {
	txs, err := s.repo.Queries().ListTransactions(ctx, typ)
	if err != nil {
		return nil, core.Persistence(msgTxReadFailed, err)
	}
	return txs, nil
}

// Get returns transaction id. With a non-empty typ, a record of another type
// is reported as not found.
func (s *TransactionService) Get(ctx context.Context, id string, typ core.TransactionType) (core.Transaction, error) {
	t, err := s.repo.Queries().GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Transaction{}, core.NotFound(msgTxNotFound)
	}
	if err != nil {
		return core.Transaction{}, core.Persistence(msgTxGetFailed, err)
	}
	if typ != "" && t.Type != typ {
		return core.Transaction{}, core.NotFound(msgTxNotFound)
	}
	return t, nil
}

// ListByUser returns the user's transactions created within [from, to];
// zero bounds are open.
func (s *TransactionService) ListByUser(ctx context.Context, userID string, typ core.TransactionType, from, to time.Time) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.Validation(core.ErrUserIDRequired)
	}
	txs, err := s.repo.Queries().ListTransactionsByUser(ctx, storage.ListTransactionsByUserParams{
		UserID:      userID,
		Type:        typ,
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		return nil, core.Persistence(msgTxReadFailed, err)
	}
	return txs, nil
}

// PeriodQuery selects a user's transactions by calendar period.
type PeriodQuery struct {
	UserID string
	Period string
	Month  string
	Year   string
	// Type is "income", "expense", or empty/"all" for both.
	Type string
}

type PeriodResult struct {
	Transactions []core.Transaction
	TotalAmount  int64
}

func parseTypeFilter(s string) (core.TransactionType, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, core.CategoryAll) {
		return "", nil
	}
	typ, err := core.ParseTransactionType(s)
	if err != nil {
		return "", core.Validation(err)
	}
	return typ, nil
}

func (s *TransactionService) rangeParams(pq PeriodQuery) (storage.TransactionRangeParams, error) {
	if strings.TrimSpace(pq.UserID) == "" {
		return storage.TransactionRangeParams{}, core.Validation(core.ErrUserIDRequired)
	}
	start, end, err := core.PeriodBounds(pq.Period, s.opts.now().In(s.opts.loc), pq.Month, pq.Year)
	if err != nil {
		return storage.TransactionRangeParams{}, core.Validation(err)
	}
	typ, err := parseTypeFilter(pq.Type)
	if err != nil {
		return storage.TransactionRangeParams{}, err
	}
	return storage.TransactionRangeParams{UserID: pq.UserID, Type: typ, Start: start, End: end}, nil
}

// ByPeriod returns the transactions dated within the period and the sum of
// their amounts.
func (s *TransactionService) ByPeriod(ctx context.Context, pq PeriodQuery) (PeriodResult, error) {
	arg, err := s.rangeParams(pq)
	if err != nil {
		return PeriodResult{}, err
	}
	txs, err := s.repo.Queries().ListTransactionsInRange(ctx, arg)
	if err != nil {
		return PeriodResult{}, core.Persistence(msgTxReadFailed, err)
	}
	return PeriodResult{Transactions: txs, TotalAmount: core.SumAmounts(txs)}, nil
}

// ByCategory totals the period's amounts per category.
func (s *TransactionService) ByCategory(ctx context.Context, pq PeriodQuery) ([]core.CategoryTotal, error) {
	arg, err := s.rangeParams(pq)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.Queries().SumTransactionsByCategory(ctx, arg)
	if err != nil {
		return nil, core.Persistence(msgTxReadFailed, err)
	}
	return totals, nil
}

// Daily totals a month's amounts per day of month, in ascending day order.
// Days are taken in the service location.
func (s *TransactionService) Daily(ctx context.Context, userID, month, year, typ string) ([]core.DayTotal, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(month) == "" || strings.TrimSpace(year) == "" {
		return nil, core.Validation(core.ErrDailyParams)
	}
	arg, err := s.rangeParams(PeriodQuery{UserID: userID, Period: core.PeriodMonth, Month: month, Year: year, Type: typ})
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.Queries().ListTransactionsInRange(ctx, arg)
	if err != nil {
		return nil, core.Persistence(msgTxReadFailed, err)
	}

	byDay := map[int]int64{}
	for _, t := range txs {
		byDay[t.Date.In(s.opts.loc).Day()] += t.Amount
	}
	out := make([]core.DayTotal, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, core.DayTotal{Day: day, TotalAmount: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// writeFailed logs persistence failures of a ledger write and returns err.
// Client errors are reported through the response only.
func (s *TransactionService) writeFailed(ctx context.Context, op, id string, err error) error {
	if core.KindOf(err) == core.KindPersistence {
		fields := log.NewFields()
		fields[log.FieldTransactionID] = id
		s.logger.LogError(ctx, "Transaction write failed", err, log.ComponentTransaction, op, fields)
	}
	return err
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"mywallet/internal/core"
	"mywallet/internal/ledger"
	"mywallet/internal/log"
	"mywallet/internal/storage"
)

const (
	msgBalanceCreateFailed = "An error occurred while creating new Balance record"
	msgBalanceReadFailed   = "An error occurred while retrieving balance records"
	msgBalanceGetFailed    = "An error occurred while retrieving the balance record"
	msgBalanceUpdateFailed = "An error occurred while updating the Balance record"
	msgBalanceDeleteFailed = "An error occurred while deleting the Balance record"
	msgBalanceNotFound     = "Balance record not found"
)

// BalanceService exposes the per-user running balance. Writes go through
// the ledger so that a user never holds more than one balance row.
type BalanceService struct {
	repo   *storage.SQLiteRepository
	cache  *BalanceCache
	logger *log.Logger
	opts   options
}

func NewBalanceService(repo *storage.SQLiteRepository, cache *BalanceCache, logger *log.Logger, opts ...Option) *BalanceService {
	return &BalanceService{
		repo:   repo,
		cache:  cache,
		logger: logger.WithComponent(log.ComponentBalance),
		opts:   newOptions(opts),
	}
}

// Create adds amount to the user's balance, creating the row on first use.
func (s *BalanceService) Create(ctx context.Context, userID string, amount int64) (core.Balance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.Balance{}, core.Validation(core.ErrUserIDRequired)
	}
	if !inAmountRange(amount) {
		return core.Balance{}, core.Validation(core.ErrAmountTooLarge)
	}
	var bal core.Balance
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		bal, err = ledger.ApplyDelta(ctx, q, userID, amount, s.opts.now())
		return err
	})
	if err != nil {
		return core.Balance{}, classify(err, msgBalanceCreateFailed)
	}
	s.cache.invalidate(userID)
	s.logger.InfoContext(ctx, "Balance credited",
		log.FieldUserID, userID, log.FieldAmount, amount, log.FieldBalance, bal.Balance)
	return bal, nil
}

func (s *BalanceService) List(ctx context.Context) ([]core.Balance, error) {
	bals, err := s.repo.Queries().ListBalances(ctx)
	if err != nil {
		return nil, core.Persistence(msgBalanceReadFailed, err)
	}
	return bals, nil
}

func (s *BalanceService) Get(ctx context.Context, id string) (core.Balance, error) {
	bal, err := s.repo.Queries().GetBalance(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Balance{}, core.NotFound(msgBalanceNotFound)
	}
	if err != nil {
		return core.Balance{}, core.Persistence(msgBalanceGetFailed, err)
	}
	return bal, nil
}

// ByUser returns the user's balance rows, optionally limited to those
// created within [from, to]. The unfiltered lookup is served from the cache.
func (s *BalanceService) ByUser(ctx context.Context, userID string, from, to time.Time) ([]core.Balance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, core.Validation(core.ErrUserIDRequired)
	}
	unfiltered := from.IsZero() && to.IsZero()
	var gen uint64
	if unfiltered {
		bal, g, ok := s.cache.lookup(userID)
		if ok {
			return []core.Balance{bal}, nil
		}
		gen = g
	}
	bals, err := s.repo.Queries().ListBalancesByUser(ctx, userID, from, to)
	if err != nil {
		return nil, core.Persistence(msgBalanceReadFailed, err)
	}
	if unfiltered && len(bals) == 1 {
		s.cache.fill(bals[0], gen)
	}
	return bals, nil
}

// Update overwrites the balance with an absolute amount.
func (s *BalanceService) Update(ctx context.Context, id string, amount int64) (core.Balance, error) {
	if !inAmountRange(amount) {
		return core.Balance{}, core.Validation(core.ErrAmountTooLarge)
	}
	var bal core.Balance
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		bal, err = ledger.SetBalance(ctx, q, id, amount, s.opts.now())
		return notFoundAs(err, msgBalanceNotFound)
	})
	if err != nil {
		return core.Balance{}, classify(err, msgBalanceUpdateFailed)
	}
	s.cache.invalidate(bal.UserID)
	s.logger.InfoContext(ctx, "Balance overwritten",
		log.FieldUserID, bal.UserID, log.FieldBalance, bal.Balance)
	return bal, nil
}

// Reconcile resets the user's balance to the signed sum of their
// transactions and returns the correction that was applied.
func (s *BalanceService) Reconcile(ctx context.Context, userID string) (core.Balance, int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.Balance{}, 0, core.Validation(core.ErrUserIDRequired)
	}
	var (
		bal  core.Balance
		diff int64
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		bal, diff, err = ledger.Reconcile(ctx, q, userID, s.opts.now())
		return err
	})
	if err != nil {
		return core.Balance{}, 0, classify(err, msgBalanceUpdateFailed)
	}
	s.cache.invalidate(userID)
	if diff != 0 {
		s.logger.WarnContext(ctx, "Balance drift corrected",
			log.FieldUserID, userID, log.FieldOperation, log.OpReconcile, "diff", diff, log.FieldBalance, bal.Balance)
	}
	return bal, diff, nil
}

func (s *BalanceService) Delete(ctx context.Context, id string) (core.Balance, error) {
	bal, err := s.repo.Queries().DeleteBalance(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Balance{}, core.NotFound(msgBalanceNotFound)
	}
	if err != nil {
		return core.Balance{}, core.Persistence(msgBalanceDeleteFailed, err)
	}
	s.cache.invalidate(bal.UserID)
	return bal, nil
}

func inAmountRange(amount int64) bool {
	return amount >= -core.MaxAmount && amount <= core.MaxAmount
}

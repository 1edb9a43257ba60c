package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/storage"
)

const (
	msgBudgetCreateFailed = "An error occurred while creating new Budget record"
	msgBudgetReadFailed   = "An error occurred while retrieving budget records"
	msgBudgetGetFailed    = "An error occurred while retrieving the budget record"
	msgBudgetUpdateFailed = "An error occurred while updating the Budget record"
	msgBudgetDeleteFailed = "An error occurred while deleting the Budget record"
	msgBudgetNotFound     = "Budget record not found"
	msgNoUserBudgets      = "No budget records found for this user"
)

type BudgetService struct {
	repo   *storage.SQLiteRepository
	logger *log.Logger
	opts   options
}

func NewBudgetService(repo *storage.SQLiteRepository, logger *log.Logger, opts ...Option) *BudgetService {
	return &BudgetService{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentBudget),
		opts:   newOptions(opts),
	}
}

// BudgetPatch holds the fields of a budget amendment; nil fields keep their
// stored value.
type BudgetPatch struct {
	Category    *string
	Amount      *int64
	SpentAmount *int64
	StartDate   *time.Time
	EndDate     *time.Time
	Note        *string
}

func (p BudgetPatch) apply(b core.Budget) core.Budget {
	if p.Category != nil {
		b.Category = strings.TrimSpace(*p.Category)
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.SpentAmount != nil {
		b.SpentAmount = *p.SpentAmount
	}
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		b.EndDate = *p.EndDate
	}
	if p.Note != nil {
		b.Note = strings.TrimSpace(*p.Note)
	}
	return b
}

// Create stores a budget. Spend recorded before the budget existed is not
// counted; SpentAmount starts at the supplied value.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.UserID = strings.TrimSpace(b.UserID)
	b.Category = strings.TrimSpace(b.Category)
	b.Note = strings.TrimSpace(b.Note)
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.Validation(err)
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.opts.now()

	if err := s.repo.Queries().CreateBudget(ctx, b); err != nil {
		return core.Budget{}, core.Persistence(msgBudgetCreateFailed, err)
	}
	s.logger.InfoContext(ctx, "Budget created",
		log.FieldUserID, b.UserID, log.FieldCategory, b.Category, log.FieldAmount, b.Amount)
	return b, nil
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	budgets, err := s.repo.Queries().ListBudgets(ctx)
	if err != nil {
		return nil, core.Persistence(msgBudgetReadFailed, err)
	}
	return budgets, nil
}

func (s *BudgetService) Get(ctx context.Context, id string) (core.Budget, error) {
	b, err := s.repo.Queries().GetBudget(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{}, core.NotFound(msgBudgetNotFound)
	}
	if err != nil {
		return core.Budget{}, core.Persistence(msgBudgetGetFailed, err)
	}
	return b, nil
}

// ListByUser reports a user without budgets as not found.
func (s *BudgetService) ListByUser(ctx context.Context, userID string) ([]core.Budget, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, core.Validation(core.ErrUserIDRequired)
	}
	budgets, err := s.repo.Queries().ListBudgetsByUser(ctx, userID)
	if err != nil {
		return nil, core.Persistence(msgBudgetReadFailed, err)
	}
	if len(budgets) == 0 {
		return nil, core.NotFound(msgNoUserBudgets)
	}
	return budgets, nil
}

// Active returns the user's budgets that an expense in category would count
// against right now.
func (s *BudgetService) Active(ctx context.Context, userID, category string) ([]core.Budget, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, core.Validation(core.ErrUserIDRequired)
	}
	budgets, err := s.repo.Queries().ListActiveBudgets(ctx, userID, strings.TrimSpace(category), s.opts.now())
	if err != nil {
		return nil, core.Persistence(msgBudgetReadFailed, err)
	}
	return budgets, nil
}

func (s *BudgetService) Update(ctx context.Context, id string, patch BudgetPatch) (core.Budget, error) {
	var updated core.Budget
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetBudget(ctx, id)
		if err != nil {
			return notFoundAs(err, msgBudgetNotFound)
		}
		next := patch.apply(old)
		if err := next.Validate(); err != nil {
			return core.Validation(err)
		}
		updated, err = q.UpdateBudget(ctx, next)
		return notFoundAs(err, msgBudgetNotFound)
	})
	if err != nil {
		return core.Budget{}, classify(err, msgBudgetUpdateFailed)
	}
	return updated, nil
}

// UpdateSpent overwrites only the spent amount.
func (s *BudgetService) UpdateSpent(ctx context.Context, id string, spent int64) (core.Budget, error) {
	if spent < 0 {
		return core.Budget{}, core.Validation(core.ErrSpentAmountNotValid)
	}
	b, err := s.repo.Queries().SetBudgetSpent(ctx, id, spent)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{}, core.NotFound(msgBudgetNotFound)
	}
	if err != nil {
		return core.Budget{}, core.Persistence(msgBudgetUpdateFailed, err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) (core.Budget, error) {
	b, err := s.repo.Queries().DeleteBudget(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{}, core.NotFound(msgBudgetNotFound)
	}
	if err != nil {
		return core.Budget{}, core.Persistence(msgBudgetDeleteFailed, err)
	}
	return b, nil
}

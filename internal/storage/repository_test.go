package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mywallet/internal/core"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	q    *Queries
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := NewSQLiteRepository(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err, "failed to create test database")
	s.repo = repo
	s.q = repo.Queries()
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) TestUserLifecycle() {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	u := core.User{ID: "u1", Name: "Ada", Email: "ada@example.com", DateOfBirth: &dob, PasswordHash: "hash", CreatedAt: now}
	require.NoError(s.T(), s.q.CreateUser(s.ctx, u))

	got, err := s.q.GetUserByEmail(s.ctx, "ada@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "u1", got.ID)
	assert.False(s.T(), got.Verified)
	require.NotNil(s.T(), got.DateOfBirth)
	assert.True(s.T(), got.DateOfBirth.Equal(dob))

	require.NoError(s.T(), s.q.SetUserVerified(s.ctx, "u1"))
	got, err = s.q.GetUser(s.ctx, "u1")
	require.NoError(s.T(), err)
	assert.True(s.T(), got.Verified)

	updated, err := s.q.UpdateUserProfile(s.ctx, "u1", "Ada L", "ada@lovelace.org")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Ada L", updated.Name)

	deleted, err := s.q.DeleteUser(s.ctx, "u1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "ada@lovelace.org", deleted.Email)

	_, err = s.q.GetUser(s.ctx, "u1")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestDuplicateEmailRejected() {
	now := time.Now()
	require.NoError(s.T(), s.q.CreateUser(s.ctx, core.User{ID: "a", Name: "A", Email: "same@example.com", PasswordHash: "h", CreatedAt: now}))
	err := s.q.CreateUser(s.ctx, core.User{ID: "b", Name: "B", Email: "same@example.com", PasswordHash: "h", CreatedAt: now})
	assert.Error(s.T(), err)
}

func (s *RepositoryTestSuite) TestTransactionQueries() {
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		{ID: "t1", UserID: "u1", Type: core.Income, Category: "Salary", PaymentMethod: "bank", Amount: 500, Date: base, CreatedAt: base},
		{ID: "t2", UserID: "u1", Type: core.Expense, Category: "Food", PaymentMethod: "card", Amount: 200, Date: base.AddDate(0, 0, 1), CreatedAt: base},
		{ID: "t3", UserID: "u1", Type: core.Expense, Category: "Food", PaymentMethod: "cash", Amount: 30, Date: base.AddDate(0, 1, 0), CreatedAt: base},
		{ID: "t4", UserID: "u2", Type: core.Expense, Category: "Food", PaymentMethod: "cash", Amount: 99, Date: base, CreatedAt: base},
	}
	for _, t := range txs {
		require.NoError(s.T(), s.q.CreateTransaction(s.ctx, t))
	}

	all, err := s.q.ListTransactions(s.ctx, "")
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 4)

	expenses, err := s.q.ListTransactions(s.ctx, core.Expense)
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 3)

	mine, err := s.q.ListTransactionsByUser(s.ctx, ListTransactionsByUserParams{UserID: "u1"})
	require.NoError(s.T(), err)
	assert.Len(s.T(), mine, 3)

	may := TransactionRangeParams{
		UserID: "u1",
		Start:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC),
	}
	inMay, err := s.q.ListTransactionsInRange(s.ctx, may)
	require.NoError(s.T(), err)
	assert.Len(s.T(), inMay, 2)
	assert.Equal(s.T(), "t1", inMay[0].ID)

	may.Type = core.Expense
	byCat, err := s.q.SumTransactionsByCategory(s.ctx, may)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []core.CategoryTotal{{Category: "Food", TotalAmount: 200}}, byCat)

	sum, err := s.q.SumSignedByUser(s.ctx, "u1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(270), sum)

	t2 := txs[1]
	t2.Amount = 250
	require.NoError(s.T(), s.q.UpdateTransaction(s.ctx, t2))
	got, err := s.q.GetTransaction(s.ctx, "t2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(250), got.Amount)

	require.NoError(s.T(), s.q.DeleteTransaction(s.ctx, "t2"))
	assert.ErrorIs(s.T(), s.q.DeleteTransaction(s.ctx, "t2"), ErrNotFound)
}

func (s *RepositoryTestSuite) TestListActiveBudgets() {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	budgets := []core.Budget{
		{ID: "food", UserID: "u1", Category: "Food", Amount: 300, StartDate: start, EndDate: now.AddDate(0, 0, 10), CreatedAt: start},
		{ID: "all", UserID: "u1", Category: core.CategoryAll, Amount: 1000, StartDate: start, EndDate: now.AddDate(0, 0, 10), CreatedAt: start},
		{ID: "rent", UserID: "u1", Category: "Rent", Amount: 800, StartDate: start, EndDate: now.AddDate(0, 0, 10), CreatedAt: start},
		{ID: "old", UserID: "u1", Category: "Food", Amount: 300, StartDate: start, EndDate: now.AddDate(0, 0, -1), CreatedAt: start},
		{ID: "other", UserID: "u2", Category: "Food", Amount: 300, StartDate: start, EndDate: now.AddDate(0, 0, 10), CreatedAt: start},
	}
	for _, b := range budgets {
		require.NoError(s.T(), s.q.CreateBudget(s.ctx, b))
	}

	active, err := s.q.ListActiveBudgets(s.ctx, "u1", "Food", now)
	require.NoError(s.T(), err)
	ids := make([]string, 0, len(active))
	for _, b := range active {
		ids = append(ids, b.ID)
	}
	assert.ElementsMatch(s.T(), []string{"food", "all"}, ids)

	everyActive, err := s.q.ListActiveBudgets(s.ctx, "u1", "", now)
	require.NoError(s.T(), err)
	assert.Len(s.T(), everyActive, 3)

	b, err := s.q.AddBudgetSpent(s.ctx, "food", 120)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(120), b.SpentAmount)

	_, err = s.q.AddBudgetSpent(s.ctx, "missing", 1)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestTokenSlotIsReplaced() {
	now := time.Now().UTC()
	first := core.TokenRecord{UserID: "u1", Purpose: core.PurposeOTP, TokenHash: "first", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	second := first
	second.TokenHash = "second"

	require.NoError(s.T(), s.q.UpsertToken(s.ctx, first))
	require.NoError(s.T(), s.q.UpsertToken(s.ctx, second))

	got, err := s.q.GetToken(s.ctx, "u1", core.PurposeOTP)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "second", got.TokenHash)

	_, err = s.q.GetToken(s.ctx, "u1", core.PurposeEmailLink)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	expired := core.TokenRecord{UserID: "u2", Purpose: core.PurposeOTP, TokenHash: "x", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(s.T(), s.q.UpsertToken(s.ctx, expired))
	stale, err := s.q.ListExpiredTokens(s.ctx, now)
	require.NoError(s.T(), err)
	require.Len(s.T(), stale, 1)
	assert.Equal(s.T(), "u2", stale[0].UserID)
}

func (s *RepositoryTestSuite) TestWithTxRollsBackOnError() {
	now := time.Now()
	boom := errors.New("boom")

	err := s.repo.WithTx(s.ctx, func(q *Queries) error {
		if err := q.CreateTransaction(s.ctx, core.Transaction{ID: "t1", UserID: "u1", Type: core.Income, Category: "c", PaymentMethod: "p", Amount: 10, Date: now, CreatedAt: now}); err != nil {
			return err
		}
		if err := q.CreateBalance(s.ctx, core.Balance{ID: "b1", UserID: "u1", Balance: 10, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(s.T(), err, boom)

	_, err = s.q.GetTransaction(s.ctx, "t1")
	assert.ErrorIs(s.T(), err, ErrNotFound)
	_, err = s.q.GetBalanceByUser(s.ctx, "u1")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestExportQueueLifecycle() {
	now := time.Now()
	for _, id := range []string{"t1", "t2"} {
		require.NoError(s.T(), s.q.EnqueueExport(s.ctx, EnqueueExportParams{Operation: ExportOpSync, TransactionID: id, Payload: "{}", Now: now}))
	}

	items, err := s.repo.DequeueExportBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), items, 2)

	require.NoError(s.T(), s.repo.MarkExportProcessing(s.ctx, items[0].ID))
	require.NoError(s.T(), s.repo.MarkExportComplete(s.ctx, items[0].ID))
	require.NoError(s.T(), s.repo.MarkExportProcessing(s.ctx, items[1].ID))
	require.NoError(s.T(), s.repo.MarkExportFailed(s.ctx, items[1].ID, "sheet unavailable"))

	stats, err := s.repo.GetExportQueueStats(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ExportQueueStats{Completed: 1, Failed: 1}, stats)

	n, err := s.repo.RetryFailedExports(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)

	require.NoError(s.T(), s.repo.CleanupCompletedExports(s.ctx, now.Add(time.Hour)))
	stats, err = s.repo.GetExportQueueStats(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ExportQueueStats{Pending: 1}, stats)
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
}

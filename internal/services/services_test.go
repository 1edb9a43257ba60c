package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mywallet/internal/auth"
	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/mail"
	"mywallet/internal/storage"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	dbPath string
	repo   *storage.SQLiteRepository
	clock  *testClock
	mailer *mail.Recorder
	logger *log.Logger

	transactions *TransactionService
	balances     *BalanceService
	budgets      *BudgetService
	verification *VerificationService
	users        *UserService
}

const testBaseURL = "http://localhost:5000/"

var zeroTime time.Time

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "services.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	f := &fixture{
		dbPath: dbPath,
		repo:   repo,
		clock:  &testClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)},
		mailer: &mail.Recorder{},
		logger: log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
	}
	opts := []Option{WithClock(f.clock.Now), WithLocation(time.UTC)}
	hasher := auth.NewHasher(bcrypt.MinCost)
	cache := NewBalanceCache(16, time.Minute)

	f.transactions = NewTransactionService(repo, cache, f.logger, opts...)
	f.balances = NewBalanceService(repo, cache, f.logger, opts...)
	f.budgets = NewBudgetService(repo, f.logger, opts...)
	f.verification = NewVerificationService(repo, hasher, f.mailer, testBaseURL, f.logger, opts...)
	f.users = NewUserService(repo, hasher, f.verification, f.logger, opts...)
	return f
}

func (f *fixture) balanceOf(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := f.repo.Queries().GetBalanceByUser(context.Background(), userID)
	require.NoError(t, err)
	return b.Balance
}

func (f *fixture) createTx(t *testing.T, userID string, typ core.TransactionType, category string, amount int64, date time.Time) core.Transaction {
	t.Helper()
	tx, err := f.transactions.Create(context.Background(), core.Transaction{
		UserID:        userID,
		Type:          typ,
		Category:      category,
		PaymentMethod: "card",
		Amount:        amount,
		Date:          date,
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) createBudget(t *testing.T, userID, category string, amount int64, start, end time.Time) core.Budget {
	t.Helper()
	b, err := f.budgets.Create(context.Background(), core.Budget{
		UserID:    userID,
		Category:  category,
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return b
}

var (
	codeRe = regexp.MustCompile(`<b>([0-9a-f-]+)</b>`)
	linkRe = regexp.MustCompile(`user/verify/([^/"]+)/([^/"]+)"`)
)

// lastCode extracts the OTP or reset code from the most recent email.
func (f *fixture) lastCode(t *testing.T) string {
	t.Helper()
	msg, ok := f.mailer.Last()
	require.True(t, ok, "no email sent")
	m := codeRe.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2, "no code in %q", msg.HTML)
	return m[1]
}

// lastLinkToken extracts the token of the most recent verification link.
func (f *fixture) lastLinkToken(t *testing.T) string {
	t.Helper()
	msg, ok := f.mailer.Last()
	require.True(t, ok, "no email sent")
	m := linkRe.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 3, "no link in %q", msg.HTML)
	return m[2]
}

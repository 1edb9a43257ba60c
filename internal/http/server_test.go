package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mywallet/internal/auth"
	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/mail"
	"mywallet/internal/services"
	"mywallet/internal/storage"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	srv    *Server
	repo   *storage.SQLiteRepository
	mailer *mail.Recorder
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
	mailer := &mail.Recorder{}
	svcOpts := []services.Option{
		services.WithClock(func() time.Time { return testNow }),
		services.WithLocation(time.UTC),
	}
	hasher := auth.NewHasher(bcrypt.MinCost)
	cache := services.NewBalanceCache(16, time.Minute)
	verification := services.NewVerificationService(repo, hasher, mailer, "http://localhost:5000/", logger, svcOpts...)

	if opts.Location == nil {
		opts.Location = time.UTC
	}
	srv, err := NewServer(opts, repo, Services{
		Transactions: services.NewTransactionService(repo, cache, logger, svcOpts...),
		Balances:     services.NewBalanceService(repo, cache, logger, svcOpts...),
		Budgets:      services.NewBudgetService(repo, logger, svcOpts...),
		Users:        services.NewUserService(repo, hasher, verification, logger, svcOpts...),
		Verification: verification,
		BalanceCache: cache,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.limiter.Stop() })

	return &testServer{srv: srv, repo: repo, mailer: mailer}
}

// do sends body as JSON (or no body when nil) and returns the recorder.
func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Status      Status          `json:"status"`
	Message     string          `json:"message"`
	Data        json.RawMessage `json:"data"`
	Error       string          `json:"error"`
	TotalAmount *int64          `json:"totalAmount"`
}

func (ts *testServer) call(t *testing.T, method, target string, body any) envelope {
	t.Helper()
	rr := ts.do(t, method, target, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (ts *testServer) balance(t *testing.T, userID string) int64 {
	t.Helper()
	env := ts.call(t, http.MethodGet, "/balance/user?userId="+userID, nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	bals := decode[[]core.Balance](t, env.Data)
	require.Len(t, bals, 1)
	return bals[0].Balance
}

var codeRe = regexp.MustCompile(`<b>([0-9a-f-]+)</b>`)

func (ts *testServer) lastCode(t *testing.T) string {
	t.Helper()
	msg, ok := ts.mailer.Last()
	require.True(t, ok, "no email sent")
	m := codeRe.FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2, "no code in %q", msg.HTML)
	return m[1]
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	rr := ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total 3")
	assert.Contains(t, rr.Body.String(), `export_queue_items{status="pending"} 0`)
	assert.Contains(t, rr.Body.String(), `cache_lookups_total{type="balance",result="hit"} 0`)
	assert.Contains(t, rr.Body.String(), `cache_removals_total{type="balance",reason="evicted"} 0`)
}

func TestUnknownRouteIsEnvelope(t *testing.T) {
	ts := newTestServer(t, Options{})
	env := ts.call(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, StatusFailed, env.Status)
	assert.Equal(t, "Route not found", env.Message)
}

func TestTransactionLedgerFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	const user = "u1"

	env := ts.call(t, http.MethodPost, "/budget/create", map[string]any{
		"userId": user, "category": "Food", "amount": 1000,
		"startDate": "2024-06-01", "endDate": "2024-06-30",
	})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	food := decode[core.Budget](t, env.Data)

	env = ts.call(t, http.MethodPost, "/budget/create", map[string]any{
		"userId": user, "category": "all", "amount": "5000",
		"startDate": "2024-06-01", "endDate": "2024-12-31",
	})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	all := decode[core.Budget](t, env.Data)

	env = ts.call(t, http.MethodPost, "/income/create", map[string]any{
		"userId": user, "category": "Salary", "paymentMethod": "bank", "amount": "500", "date": "2024-06-10",
	})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, "Transaction record created successfully", env.Message)
	assert.Equal(t, int64(500), ts.balance(t, user))

	env = ts.call(t, http.MethodPost, "/expense/create", map[string]any{
		"userId": user, "category": "Food", "paymentMethod": "card", "amount": 200, "date": "2024-06-12",
	})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	expense := decode[core.Transaction](t, env.Data)
	assert.Equal(t, core.Expense, expense.Type)
	assert.Equal(t, int64(300), ts.balance(t, user))

	env = ts.call(t, http.MethodGet, "/budget/"+user, nil)
	budgets := decode[[]core.Budget](t, env.Data)
	require.Len(t, budgets, 2)
	for _, b := range budgets {
		assert.Contains(t, []string{food.ID, all.ID}, b.ID)
		assert.Equal(t, int64(200), b.SpentAmount, b.Category)
	}

	env = ts.call(t, http.MethodGet, "/transaction/period/month?userId=u1&month=6&year=2024", nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	require.NotNil(t, env.TotalAmount)
	assert.Equal(t, int64(700), *env.TotalAmount)
	assert.Len(t, decode[[]core.Transaction](t, env.Data), 2)

	env = ts.call(t, http.MethodGet, "/expense/period/month?userId=u1&month=June&year=2024", nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, int64(200), *env.TotalAmount)

	env = ts.call(t, http.MethodGet, "/transaction/category/year?userId=u1&month=1&year=2024&type=expense", nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, []core.CategoryTotal{{Category: "Food", TotalAmount: 200}}, decode[[]core.CategoryTotal](t, env.Data))

	env = ts.call(t, http.MethodGet, "/income/daily?userId=u1&month=6&year=2024", nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, []core.DayTotal{{Day: 10, TotalAmount: 500}}, decode[[]core.DayTotal](t, env.Data))

	// An income route does not see expenses.
	env = ts.call(t, http.MethodGet, "/income/"+expense.ID, nil)
	assert.Equal(t, StatusFailed, env.Status)
	assert.Equal(t, "Transaction record not found", env.Message)

	env = ts.call(t, http.MethodPut, "/expense/update/"+expense.ID, map[string]any{"amount": "250"})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, int64(250), ts.balance(t, user))

	env = ts.call(t, http.MethodDelete, "/transaction/delete/"+expense.ID, nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, int64(500), ts.balance(t, user))

	// Deleting an expense leaves budget spend untouched.
	env = ts.call(t, http.MethodGet, "/budget/active?userId=u1&category=Food", nil)
	for _, b := range decode[[]core.Budget](t, env.Data) {
		assert.Equal(t, int64(200), b.SpentAmount, b.Category)
	}

	stats, err := ts.repo.GetExportQueueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Pending, "create, create, update, delete")
}

func TestTransactionCreateValidation(t *testing.T) {
	ts := newTestServer(t, Options{})
	valid := map[string]any{
		"userId": "u1", "type": "income", "category": "Salary", "paymentMethod": "bank",
		"amount": "10", "date": "2024-06-10",
	}
	with := func(k string, v any) map[string]any {
		m := map[string]any{}
		for key, val := range valid {
			m[key] = val
		}
		m[k] = v
		return m
	}

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"empty category", with("category", " "), "Empty input fields!"},
		{"missing amount", with("amount", nil), "Empty input fields!"},
		{"decimal amount", with("amount", "10.5"), "Only numbers are accepted"},
		{"negative amount", with("amount", -3), "Only numbers are accepted"},
		{"bad date", with("date", "yesterday"), "Invalid date entered"},
		{"bad type", with("type", "loan"), "Invalid transaction type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := ts.call(t, http.MethodPost, "/transaction/create", tt.body)
			assert.Equal(t, StatusFailed, env.Status)
			assert.Equal(t, tt.want, env.Message)
		})
	}

	env := ts.call(t, http.MethodPost, "/transaction/create", with("type", "EXPENSE"))
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, core.Expense, decode[core.Transaction](t, env.Data).Type)
}

func TestTransactionCreateAcceptsForm(t *testing.T) {
	ts := newTestServer(t, Options{})
	form := url.Values{
		"userId": {"u1"}, "category": {"Gift"}, "paymentMethod": {"cash"},
		"amount": {"42"}, "date": {"2024-06-01"},
	}
	req := httptest.NewRequest(http.MethodPost, "/income/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, int64(42), ts.balance(t, "u1"))
}

func TestPeriodErrors(t *testing.T) {
	ts := newTestServer(t, Options{})
	tests := []struct {
		target string
		want   string
	}{
		{"/transaction/period/month?month=6&year=2024", "UserID is required"},
		{"/transaction/period/month?userId=u1", "Month and year are required for the specified period"},
		{"/transaction/period/month?userId=u1&month=Smarch&year=2024", "Invalid month specified"},
		{"/transaction/period/decade?userId=u1", "Invalid period specified"},
		{"/transaction/daily?userId=u1&month=6", "UserID, month, and year are required"},
	}
	for _, tt := range tests {
		env := ts.call(t, http.MethodGet, tt.target, nil)
		assert.Equal(t, StatusFailed, env.Status, tt.target)
		assert.Equal(t, tt.want, env.Message, tt.target)
	}

	env := ts.call(t, http.MethodGet, "/transaction/period/week?userId=u1", nil)
	require.Equal(t, StatusSuccess, env.Status)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, int64(0), *env.TotalAmount)
}

func TestBalanceRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})

	env := ts.call(t, http.MethodPost, "/balance/create", map[string]any{"userId": "u1", "amount": "abc"})
	assert.Equal(t, "Only numbers are accepted", env.Message)

	env = ts.call(t, http.MethodPost, "/balance/create", map[string]any{"userId": "u1", "amount": 100})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, "Balance record created successfully", env.Message)
	bal := decode[core.Balance](t, env.Data)

	env = ts.call(t, http.MethodPut, "/balance/update/"+bal.ID, map[string]any{"amount": "12x"})
	assert.Equal(t, StatusFailed, env.Status)
	assert.Equal(t, "Only numbers are accepted for the amount", env.Message)

	env = ts.call(t, http.MethodPut, "/balance/update/"+bal.ID, map[string]any{"amount": 900})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, int64(900), ts.balance(t, "u1"))

	// No transactions back the balance, so reconcile corrects it to zero.
	env = ts.call(t, http.MethodPost, "/balance/reconcile?userId=u1", nil)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, int64(-900), *env.TotalAmount)
	assert.Equal(t, int64(0), ts.balance(t, "u1"))

	env = ts.call(t, http.MethodGet, "/balance/missing", nil)
	assert.Equal(t, "Balance record not found", env.Message)

	env = ts.call(t, http.MethodDelete, "/balance/delete/"+bal.ID, nil)
	assert.Equal(t, "Balance record deleted successfully", env.Message)

	env = ts.call(t, http.MethodGet, "/balance", nil)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestBudgetRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})

	env := ts.call(t, http.MethodGet, "/budget/u1", nil)
	assert.Equal(t, StatusFailed, env.Status)
	assert.Equal(t, "No budget records found for this user", env.Message)

	env = ts.call(t, http.MethodPost, "/budget/create", map[string]any{
		"userId": "u1", "category": "Food", "amount": "lots", "startDate": "2024-06-01", "endDate": "2024-06-30",
	})
	assert.Equal(t, "Amount and spentAmount must be numbers", env.Message)

	env = ts.call(t, http.MethodPost, "/budget/create", map[string]any{"userId": "u1", "category": "Food"})
	assert.Equal(t, "Empty input fields!", env.Message)

	env = ts.call(t, http.MethodPost, "/budget/create", map[string]any{
		"userId": "u1", "category": "Food", "amount": 300, "startDate": "2024-06-01", "endDate": "2024-06-30",
	})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	b := decode[core.Budget](t, env.Data)

	env = ts.call(t, http.MethodPut, "/budget/update/"+b.ID, map[string]any{"updateSpentAmountOnly": true, "spentAmount": "x"})
	assert.Equal(t, "spentAmount must be a number", env.Message)

	env = ts.call(t, http.MethodPut, "/budget/update/"+b.ID, map[string]any{"updateSpentAmountOnly": true, "spentAmount": 120})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, "Budget spent amount updated successfully", env.Message)
	assert.Equal(t, int64(120), decode[core.Budget](t, env.Data).SpentAmount)

	env = ts.call(t, http.MethodPut, "/budget/update/"+b.ID, map[string]any{
		"category": "Groceries", "amount": 400, "startDate": "2024-06-01", "endDate": "2024-07-31",
	})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	updated := decode[core.Budget](t, env.Data)
	assert.Equal(t, "Groceries", updated.Category)
	assert.Equal(t, int64(120), updated.SpentAmount)

	env = ts.call(t, http.MethodDelete, "/budget/delete/"+b.ID, nil)
	assert.Equal(t, "Budget record deleted successfully", env.Message)

	env = ts.call(t, http.MethodDelete, "/budget/delete/"+b.ID, nil)
	assert.Equal(t, "Budget record not found", env.Message)
}

func TestSignupVerifySignin(t *testing.T) {
	ts := newTestServer(t, Options{SignupPurpose: core.PurposeOTP})
	creds := map[string]any{"email": "ada@example.com", "password": "correct horse"}

	env := ts.call(t, http.MethodPost, "/user/signup", map[string]any{
		"name": "Ada Lovelace", "email": "ada@example.com", "dateOfBirth": "1815-12-10", "password": "correct horse",
	})
	require.Equal(t, StatusPending, env.Status, env.Message)
	assert.Equal(t, "Verification otp email sent", env.Message)
	pending := decode[pendingData](t, env.Data)
	assert.Equal(t, "ada@example.com", pending.Email)

	env = ts.call(t, http.MethodPost, "/user/signin", creds)
	assert.Equal(t, StatusFailed, env.Status)
	assert.Equal(t, "Email hasn't been verified yet. Check your inbox.", env.Message)

	code := ts.lastCode(t)
	env = ts.call(t, http.MethodPost, "/user/verifyOTP", map[string]any{"userId": pending.UserID, "otp": "0000x"})
	assert.Equal(t, StatusFailed, env.Status)

	env = ts.call(t, http.MethodPost, "/user/verifyOTP", map[string]any{"userId": pending.UserID, "otp": code})
	require.Equal(t, StatusVerified, env.Status, env.Message)
	assert.Equal(t, "User email verified successfully.", env.Message)

	env = ts.call(t, http.MethodPost, "/user/verifyOTP", map[string]any{"userId": pending.UserID, "otp": code})
	assert.Equal(t, StatusFailed, env.Status, "a token redeems once")

	env = ts.call(t, http.MethodPost, "/user/signin", creds)
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, "Signin successful", env.Message)
	assert.NotContains(t, string(env.Data), "password")

	env = ts.call(t, http.MethodPost, "/user/signup", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "12345678",
	})
	assert.Equal(t, "User with provided email already exists", env.Message)
}

func TestEmailLinkVerification(t *testing.T) {
	ts := newTestServer(t, Options{SignupPurpose: core.PurposeEmailLink})

	env := ts.call(t, http.MethodPost, "/user/signup", map[string]any{
		"name": "Grace", "email": "grace@example.com", "password": "cobol4ever",
	})
	require.Equal(t, StatusPending, env.Status, env.Message)
	assert.Equal(t, "Verification email sent", env.Message)
	userID := decode[pendingData](t, env.Data).UserID

	msg, ok := ts.mailer.Last()
	require.True(t, ok)
	m := regexp.MustCompile(`user/verify/[^/"]+/([^/"]+)"`).FindStringSubmatch(msg.HTML)
	require.Len(t, m, 2)

	rr := ts.do(t, http.MethodGet, "/user/verify/"+userID+"/wrong", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/user/verified", loc.Path)
	assert.Equal(t, "true", loc.Query().Get("error"))
	assert.Equal(t, "Invalid verification Details passed. Check your Inbox.", loc.Query().Get("message"))

	rr = ts.do(t, http.MethodGet, "/user/verify/"+userID+"/"+m[1], nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/user/verified", rr.Header().Get("Location"))

	rr = ts.do(t, http.MethodGet, "/user/verified", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Email verified")

	rr = ts.do(t, http.MethodGet, "/user/verified?error=true&message=Link+has+expired.", nil)
	assert.Contains(t, rr.Body.String(), "Verification failed")
	assert.Contains(t, rr.Body.String(), "Link has expired.")
}

func TestProfileAndPasswordReset(t *testing.T) {
	ts := newTestServer(t, Options{})

	env := ts.call(t, http.MethodPost, "/user/signup", map[string]any{
		"name": "Alan", "email": "alan@example.com", "password": "enigma1912",
	})
	userID := decode[pendingData](t, env.Data).UserID
	env = ts.call(t, http.MethodPost, "/user/verifyOTP", map[string]any{"userId": userID, "otp": ts.lastCode(t)})
	require.Equal(t, StatusVerified, env.Status, env.Message)

	env = ts.call(t, http.MethodPost, "/user/updateProfile", map[string]any{"userId": userID, "name": "Alan Turing", "email": "turing@example.com"})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, "Profile updated successfully", env.Message)

	env = ts.call(t, http.MethodPost, "/user/getProfile", map[string]any{"userId": userID})
	require.Equal(t, StatusSuccess, env.Status, env.Message)
	assert.Equal(t, "Alan Turing", decode[core.User](t, env.Data).Name)

	env = ts.call(t, http.MethodPost, "/user/updatePassword", map[string]any{"userId": userID, "oldPassword": "nope-nope", "newPassword": "bombe1940"})
	assert.Equal(t, "Old password is incorrect", env.Message)

	env = ts.call(t, http.MethodPost, "/user/updatePassword", map[string]any{"userId": userID, "oldPassword": "enigma1912", "newPassword": "bombe1940"})
	assert.Equal(t, "Password updated successfully", env.Message)

	env = ts.call(t, http.MethodPost, "/user/requestPasswordReset", map[string]any{"email": "turing@example.com"})
	require.Equal(t, StatusPending, env.Status, env.Message)
	assert.Equal(t, "Password reset email sent", env.Message)

	env = ts.call(t, http.MethodPost, "/user/resetPassword", map[string]any{"userId": userID, "otp": ts.lastCode(t), "newPassword": "universal1936"})
	require.Equal(t, StatusSuccess, env.Status, env.Message)

	env = ts.call(t, http.MethodPost, "/user/signin", map[string]any{"email": "turing@example.com", "password": "universal1936"})
	assert.Equal(t, StatusSuccess, env.Status, env.Message)

	env = ts.call(t, http.MethodDelete, "/user/delete/"+userID, nil)
	assert.Equal(t, "User record deleted successfully", env.Message)
	env = ts.call(t, http.MethodPost, "/user/getProfile", map[string]any{"userId": userID})
	assert.Equal(t, "User not found", env.Message)
}

func TestResendReplacesCode(t *testing.T) {
	ts := newTestServer(t, Options{})
	env := ts.call(t, http.MethodPost, "/user/signup", map[string]any{
		"name": "Linus", "email": "linus@example.com", "password": "penguins!",
	})
	userID := decode[pendingData](t, env.Data).UserID

	env = ts.call(t, http.MethodPost, "/user/resendOTPVerificationCode", map[string]any{"userId": userID})
	assert.Equal(t, "Verification OTP Resend Error. Empty user details are not allowed", env.Message)

	env = ts.call(t, http.MethodPost, "/user/resendOTPVerificationCode", map[string]any{"userId": userID, "email": "linus@example.com"})
	require.Equal(t, StatusPending, env.Status, env.Message)
	assert.Len(t, ts.mailer.Sent(), 2)

	env = ts.call(t, http.MethodPost, "/user/verifyOTP", map[string]any{"userId": userID, "otp": ts.lastCode(t)})
	assert.Equal(t, StatusVerified, env.Status, env.Message)
}

func TestRateLimitReturns429Envelope(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/balance", nil).Code)
	}
	rr := ts.do(t, http.MethodGet, "/balance", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"FAILED","message":"Too many requests, please try again later."}`, rr.Body.String())

	// Probes are not rate limited.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", nil).Code)
}

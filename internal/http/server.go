package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/middleware/ratelimit"
	"mywallet/internal/middleware/security"
	"mywallet/internal/middleware/trace"
	"mywallet/internal/services"
	"mywallet/internal/storage"
	appweb "mywallet/web"
)

// Services bundles the operations behind the API.
type Services struct {
	Transactions *services.TransactionService
	Balances     *services.BalanceService
	Budgets      *services.BudgetService
	Users        *services.UserService
	Verification *services.VerificationService
	BalanceCache *services.BalanceCache
}

// Options configures the server.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	// SignupPurpose selects OTP or email-link verification for new accounts.
	SignupPurpose core.TokenPurpose
	// Location is the zone for dates supplied without one.
	Location *time.Location
}

// Server serves the JSON API.
type Server struct {
	http.Server

	svc      Services
	repo     *storage.SQLiteRepository
	opts     Options
	logger   *log.Logger
	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	pages    *template.Template
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, repo *storage.SQLiteRepository, svc Services, logger *log.Logger) (*Server, error) {
	if opts.SignupPurpose == "" {
		opts.SignupPurpose = core.PurposeOTP
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	pages, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}

	s := &Server{
		svc:      svc,
		repo:     repo,
		opts:     opts,
		logger:   logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		pages:   pages,
		started: time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	api := http.NewServeMux()
	s.registerTransactionRoutes(api, "/transaction", "")
	s.registerTransactionRoutes(api, "/income", core.Income)
	s.registerTransactionRoutes(api, "/expense", core.Expense)
	s.registerBalanceRoutes(api)
	s.registerBudgetRoutes(api)
	s.registerUserRoutes(api)
	api.HandleFunc("/", handleNotFound)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/", limited)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	Failed("Too many requests, please try again later.").Status(http.StatusTooManyRequests).Write(w, r)
}

// handleNotFound answers unknown routes with the envelope instead of the
// mux's plain text.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	Failed("Route not found").Write(w, r)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

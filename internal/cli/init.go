// Package cli provides the start-up code shared by cmd/mywallet,
// cmd/mywallet-worker and cmd/mywallet-admin, and the admin command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mywallet/internal/auth"
	"mywallet/internal/config"
	"mywallet/internal/core"
	httpapi "mywallet/internal/http"
	"mywallet/internal/log"
	"mywallet/internal/mail"
	"mywallet/internal/services"
	"mywallet/internal/storage"
)

const (
	balanceCacheSize = 1000
	balanceCacheTTL  = time.Minute
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the configured level and makes it
// the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository, migrating it to the latest schema.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// SignupPurpose maps the configured verification mode to the token sent on
// signup.
func SignupPurpose(cfg *config.Config) core.TokenPurpose {
	if cfg.VerificationMode == config.VerificationLink {
		return core.PurposeEmailLink
	}
	return core.PurposeOTP
}

// NewServices wires the ledger and account services over one repository.
func NewServices(cfg *config.Config, repo *storage.SQLiteRepository, mailer mail.Mailer, logger *log.Logger, opts ...services.Option) httpapi.Services {
	hasher := auth.NewHasher(cfg.BcryptCost)
	balances := services.NewBalanceCache(balanceCacheSize, balanceCacheTTL)
	verification := services.NewVerificationService(repo, hasher, mailer, cfg.PublicURL(), logger, opts...)

	return httpapi.Services{
		Transactions: services.NewTransactionService(repo, balances, logger, opts...),
		Balances:     services.NewBalanceService(repo, balances, logger, opts...),
		Budgets:      services.NewBudgetService(repo, logger, opts...),
		Users:        services.NewUserService(repo, hasher, verification, logger, opts...),
		Verification: verification,
		BalanceCache: balances,
	}
}

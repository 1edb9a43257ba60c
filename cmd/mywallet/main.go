package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"mywallet/internal/backend"
	"mywallet/internal/cache"
	"mywallet/internal/cli"
	apphttp "mywallet/internal/http"
	"mywallet/internal/log"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
	tokenPurgeInterval   = time.Hour
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mail backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	mailer, err := backend.NewFactory(logger).CreateMailer(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize mail backend", log.FieldError, err, "backend", cfg.MailBackend)
		os.Exit(1)
	}
	if mailer.Cleanup != nil {
		defer mailer.Cleanup()
	}

	svc := cli.NewServices(cfg, repo, mailer.Mailer, logger)

	caches := cache.NewManager()
	caches.Register(svc.BalanceCache.Cleaner())
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SignupPurpose:      cli.SignupPurpose(cfg),
	}, repo, svc, logger)
	if err != nil {
		logger.Error("Failed to configure HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting mywallet server",
			"port", cfg.Port,
			"env", cfg.AppEnv,
			"mail_backend", cfg.MailBackend,
			"verification", cfg.VerificationMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Expired tokens are also rejected on redemption; the sweep only keeps
	// the table small.
	g.Go(func() error {
		ticker := time.NewTicker(tokenPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := svc.Verification.PurgeExpired(ctx); err != nil {
					logger.Warn("Token purge failed", log.FieldError, err)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

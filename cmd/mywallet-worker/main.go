package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"mywallet/internal/amqp"
	"mywallet/internal/backend"
	"mywallet/internal/cli"
	"mywallet/internal/log"
	"mywallet/internal/mail"
	"mywallet/internal/services"
	gsheet "mywallet/internal/sheets/google"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting mywallet-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid mail configuration", log.FieldError, err)
			os.Exit(1)
		}
		smtp, err := backend.NewFactory(logger).CreateMailer(ctx, backendCfg.SMTPConfig())
		if err != nil {
			logger.Error("Failed to initialize SMTP mailer", log.FieldError, err)
			os.Exit(1)
		}

		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		mailLogger := logger.WithComponent(log.ComponentMail)
		g.Go(func() error {
			err := client.ConsumeMail(ctx, func(ctx context.Context, m *amqp.MailMessage) error {
				return smtp.Mailer.Send(ctx, mail.Message{To: m.To, Subject: m.Subject, HTML: m.HTML})
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		mailLogger.Info("Relaying queued mail over SMTP", "queue", cfg.AMQPQueue, "host", cfg.SMTPHost)
	} else {
		logger.Info("Mail relay disabled - no AMQP_URL provided")
	}

	if cfg.ExportEnabled() {
		sheets, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		exportCfg := services.DefaultExportProcessorConfig()
		exportCfg.PollInterval = cfg.ExportInterval
		exportCfg.BatchSize = cfg.ExportBatchSize
		processor := services.NewExportProcessor(repo, sheets, exportCfg, logger)
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err)
			os.Exit(1)
		}

		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return processor.Stop(stopCtx)
		})
	} else {
		logger.Info("Ledger export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

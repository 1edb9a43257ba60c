package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mywallet/internal/config"
	"mywallet/internal/log"
	"mywallet/internal/mail"
	"mywallet/internal/services"
	"mywallet/internal/storage"
)

// RootOptions holds global flags for all admin commands.
type RootOptions struct {
	DBPath   string
	Format   string // "json" | "text"
	LogLevel string

	logger *log.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the admin CLI. Defaults come
// from the same environment the server reads.
func NewRootCommand() *cobra.Command {
	cfg := config.Load()
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "mywallet-admin",
		Short:         "Maintenance commands for the mywallet database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.DBPath == "" {
				return fmt.Errorf("database path cannot be empty")
			}
			opts.logger = log.New(log.Config{
				Level:     log.ParseLevel(opts.LogLevel),
				Component: log.ComponentApp,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newPurgeTokensCommand(opts))
	cmd.AddCommand(newOutboxCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// emit writes v as JSON, or text as a single line.
func (o *RootOptions) emit(w io.Writer, v any, text string) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func (o *RootOptions) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(o.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", o.DBPath, err)
	}
	return repo, nil
}

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("schema version %d (dirty)", s.Version)
	}
	return fmt.Sprintf("schema version %d", s.Version)
}

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
	}

	status := func(cmd *cobra.Command) error {
		v, dirty, err := storage.MigrationVersion(opts.DBPath)
		if err != nil {
			return err
		}
		s := migrationStatus{Version: v, Dirty: dirty}
		return opts.emit(cmd.OutOrStdout(), s, s.String())
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(opts.DBPath); err != nil {
				return err
			}
			opts.logger.Info("Migrations applied", "path", opts.DBPath)
			return status(cmd)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RollbackMigrations(opts.DBPath, steps); err != nil {
				return err
			}
			opts.logger.Warn("Migrations rolled back", "path", opts.DBPath, "steps", steps)
			return status(cmd)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return status(cmd)
		},
	})

	return cmd
}

type reconcileResult struct {
	UserID     string `json:"userId"`
	Balance    int64  `json:"balance"`
	Adjustment int64  `json:"adjustment"`
}

func newReconcileCommand(opts *RootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute a user's balance from their transactions",
		Long: `Recompute the stored balance of a user as income minus expenses over
all of their transactions, and report the correction applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			balances := services.NewBalanceService(repo, nil, opts.logger)
			b, diff, err := balances.Reconcile(cmd.Context(), userID)
			if err != nil {
				return err
			}
			res := reconcileResult{UserID: b.UserID, Balance: b.Balance, Adjustment: diff}
			return opts.emit(cmd.OutOrStdout(), res,
				fmt.Sprintf("balance of %s is %d (adjusted by %+d)", res.UserID, res.Balance, res.Adjustment))
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to reconcile")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type countResult struct {
	Count int64 `json:"count"`
}

func newPurgeTokensCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired verification and password reset tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			// Purging never sends mail.
			verification := services.NewVerificationService(repo, nil, mail.NewLogMailer(opts.logger), "", opts.logger)
			n, err := verification.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), countResult{Count: n}, fmt.Sprintf("purged %d expired token(s)", n))
		},
	}
}

type outboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func newOutboxCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect the spreadsheet export queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count queued exports by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.GetExportQueueStats(cmd.Context())
			if err != nil {
				return err
			}
			view := outboxStats(s)
			return opts.emit(cmd.OutOrStdout(), view,
				fmt.Sprintf("pending=%d processing=%d completed=%d failed=%d", s.Pending, s.Processing, s.Completed, s.Failed))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "retry",
		Short: "Requeue exports that exhausted their retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := repo.RetryFailedExports(cmd.Context())
			if err != nil {
				return err
			}
			if n > 0 {
				opts.logger.Info("Failed exports requeued", "count", n)
			}
			return opts.emit(cmd.OutOrStdout(), countResult{Count: n}, fmt.Sprintf("requeued %d failed export(s)", n))
		},
	})

	return cmd
}

package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose        bool
	Format         string // "json" | "text"
	Database       string // empty selects an in-memory database
	Driver         string
	BusyTimeout    time.Duration
	TxPerMigration bool
	LogLevel       slog.Level

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlbridge CLI.
// cfg supplies flag defaults, normally from config.Load.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{
		LogLevel:       cfg.LogLevel,
		TxPerMigration: cfg.TxPerMigration,
	}

	cmd := &cobra.Command{
		Use:   "sqlbridge",
		Short: "sqlbridge - SQLite commands and forward-only migrations",
		Long: `Run SQL against a SQLite database with JSON parameters and results,
and reconcile an ordered list of migrations against the database's
migrations_history ledger.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			// Configure logging based on verbose flag
			level := opts.LogLevel
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")
	flags.StringVar(&opts.Database, "db", cfg.DB, "path to SQLite database (default in-memory)")
	flags.StringVar(&opts.Driver, "driver", cfg.Driver, "database driver (sqlite3|sqlite)")
	flags.DurationVar(&opts.BusyTimeout, "busy-timeout", cfg.BusyTimeout, "how long to wait on a locked database")

	// Add subcommands
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))

	return cmd
}

// Logger returns the logger configured by the root command, or the default
// logger when a subcommand runs on its own.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

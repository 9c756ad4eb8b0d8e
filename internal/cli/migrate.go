package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/metrics"
	"github.com/roach88/sqlbridge/internal/migrate"
	"github.com/roach88/sqlbridge/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Transactional   bool
	MetricsTextfile string
}

// MigrateResult is the migrate command's output.
type MigrateResult struct {
	Verified []string `json:"verified"`
	Applied  []string `json:"applied"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate <manifest>",
		Short: "Apply pending migrations from a manifest",
		Long: `Reconcile the migrations in a manifest against the database ledger.

Migrations already recorded in migrations_history are verified by position,
name and fingerprint. Every migration past the recorded prefix is executed
and recorded, in order. The manifest is a .yaml, .json or .cue file with a
top-level "migrations" list, or a directory of .sql files.

Exit codes:
  0 - All migrations verified or applied
  1 - The ledger diverges from the manifest, or a migration failed
  2 - Command error (unreadable manifest, database not found, etc.)

Examples:
  sqlbridge migrate --db ./app.db ./migrations.yaml
  sqlbridge migrate --db ./app.db ./migrations/ --tx --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Transactional, "tx", rootOpts.TxPerMigration, "run each migration and its ledger row in one transaction")
	cmd.Flags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "write migration counters to this file in Prometheus text format")

	return cmd
}

func runMigrate(opts *MigrateOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	migrations, err := migrate.LoadManifest(manifestPath)
	if err != nil {
		return formatter.Fail("failed to load manifest", err)
	}
	formatter.VerboseLog("Loaded %d migration(s) from %s", len(migrations), manifestPath)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return formatter.Fail("failed to register metrics", err)
	}

	var report migrate.Report
	err = withStore(opts.RootOptions, formatter, func(st *store.Store) error {
		var applyErr error
		report, applyErr = st.Migrate(context.Background(), migrations,
			migrate.WithLogger(logger),
			migrate.WithMetrics(m),
			migrate.WithTransactionalBatches(opts.Transactional),
		)
		return applyErr
	})

	if opts.MetricsTextfile != "" {
		if werr := prometheus.WriteToTextfile(opts.MetricsTextfile, reg); werr != nil {
			logger.Error("writing metrics textfile", "path", opts.MetricsTextfile, "error", werr)
		}
	}

	if err != nil {
		return reportError(formatter, "migration failed", err)
	}

	result := MigrateResult{
		Verified: nonNil(report.Verified),
		Applied:  nonNil(report.Applied),
	}
	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d verified, %d applied\n", len(result.Verified), len(result.Applied))
		for _, name := range result.Applied {
			fmt.Fprintf(w, "  applied  %s\n", name)
		}
	})
}

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Show what migrate would do without executing anything",
		Long: `Compare a manifest with the database ledger and print each migration's
status: verified (already recorded), unseen (would be applied) or rejected
(diverges from the ledger).

The ledger table is created if missing; no migration SQL is executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	return cmd
}

func runPlan(opts *PlanOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	migrations, err := migrate.LoadManifest(manifestPath)
	if err != nil {
		return formatter.Fail("failed to load manifest", err)
	}

	var steps []migrate.Step
	var planErr error
	err = withStore(opts.RootOptions, formatter, func(st *store.Store) error {
		steps, planErr = st.Migrations(migrate.WithLogger(opts.Logger())).Plan(context.Background(), migrations)
		if planErr != nil && steps == nil {
			return planErr
		}
		return nil
	})
	if err != nil {
		return reportError(formatter, "plan failed", err)
	}
	if steps == nil {
		steps = []migrate.Step{}
	}

	printSteps := func(w io.Writer) {
		for _, step := range steps {
			fmt.Fprintf(w, "  %-8s  %s\n", step.Status, step.Name)
		}
	}

	if planErr != nil {
		// A rejected plan still shows how far verification got
		if formatter.Format == "json" {
			_ = formatter.Error(errorCodeFor(planErr), fmt.Sprintf("plan rejected: %v", planErr), steps)
			return WrapExitError(exitCodeFor(planErr), "plan rejected", planErr)
		}
		printSteps(formatter.Writer)
		return formatter.Fail("plan rejected", planErr)
	}
	return formatter.Render(steps, printSteps)
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List applied migrations",
		Long: `Print the migrations_history ledger in application order: id, name and
fingerprint of every recorded migration.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var entries []migrate.Entry
	err := withStore(opts.RootOptions, formatter, func(st *store.Store) error {
		var histErr error
		entries, histErr = st.Migrations(migrate.WithLogger(opts.Logger())).History(context.Background())
		return histErr
	})
	if err != nil {
		return reportError(formatter, "failed to read history", err)
	}
	if entries == nil {
		entries = []migrate.Entry{}
	}

	return formatter.Render(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "No migrations applied.")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%4d  %s  %s\n", e.ID, e.Hash, e.Name)
		}
	})
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

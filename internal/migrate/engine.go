package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/metrics"
)

// Engine reconciles migration lists against one database's ledger.
//
// The engine assumes exclusive, serialized access to db for the duration of
// a call. Callers sharing a handle must serialize (see registry).
type Engine struct {
	db             DB
	logger         *slog.Logger
	metrics        *metrics.Metrics
	txPerMigration bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the counters updated during reconciliation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTransactionalBatches runs each new migration's SQL and its ledger
// insert inside one transaction. Off by default. Never spans more than one
// migration.
func WithTransactionalBatches(enabled bool) Option {
	return func(e *Engine) {
		e.txPerMigration = enabled
	}
}

// New creates an engine over db.
func New(db DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply reconciles migrations against db's ledger and applies the new tail.
// It is shorthand for New(db).Apply with the report discarded.
func Apply(ctx context.Context, db DB, migrations []Migration) error {
	_, err := New(db).Apply(ctx, migrations)
	return err
}

// Apply ensures the ledger exists, verifies that the ledger is a prefix of
// migrations and executes every migration past that prefix in list order.
//
// Errors:
//   - database: the ledger could not be created or read
//   - migration: the list is shorter than the ledger, an applied migration
//     changed name, SQL or position, or a new migration failed
//
// The first failure stops the walk; later migrations are not attempted.
// The report lists what happened before the failure.
//
// Cancellation of ctx is ignored: once started, the call runs to completion
// or failure. ctx values still reach the driver.
func (e *Engine) Apply(ctx context.Context, migrations []Migration) (Report, error) {
	ctx = context.WithoutCancel(ctx)

	var report Report

	if err := ensureLedger(ctx, e.db); err != nil {
		return report, err
	}

	entries, err := readLedger(ctx, e.db)
	if err != nil {
		return report, err
	}

	verified, err := e.verify(entries, migrations)
	for _, m := range migrations[:verified] {
		report.Verified = append(report.Verified, m.Name)
	}
	if err != nil {
		return report, err
	}

	for _, m := range migrations[verified:] {
		if err := e.applyOne(ctx, m); err != nil {
			e.metrics.IncFailed()
			e.logger.Error("migration failed",
				"name", m.Name,
				"error", err,
			)
			return report, err
		}
		e.metrics.IncApplied()
		report.Applied = append(report.Applied, m.Name)
	}

	e.logger.Info("migrations reconciled",
		"verified", len(report.Verified),
		"applied", len(report.Applied),
	)
	return report, nil
}

// Plan reports each migration's status without executing any of them.
// The ledger table is still created if missing. On divergence the offending
// migration is StatusRejected and the error is returned alongside the steps.
func (e *Engine) Plan(ctx context.Context, migrations []Migration) ([]Step, error) {
	if err := ensureLedger(ctx, e.db); err != nil {
		return nil, err
	}

	entries, err := readLedger(ctx, e.db)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, len(migrations))
	for i, m := range migrations {
		steps[i] = Step{Name: m.Name, Status: StatusUnseen}
	}

	verified, err := e.verify(entries, migrations)
	for i := 0; i < verified; i++ {
		steps[i].Status = StatusVerified
	}
	if err != nil && verified < len(migrations) {
		steps[verified].Status = StatusRejected
	}
	return steps, err
}

// History returns the ledger rows in application order.
// The ledger table is created if missing.
func (e *Engine) History(ctx context.Context) ([]Entry, error) {
	if err := ensureLedger(ctx, e.db); err != nil {
		return nil, err
	}
	return readLedger(ctx, e.db)
}

// verify walks ledger entries and migrations in lockstep by position and
// returns how many leading migrations matched.
func (e *Engine) verify(entries []Entry, migrations []Migration) (int, error) {
	for i, entry := range entries {
		if i >= len(migrations) {
			e.metrics.IncRejected()
			e.logger.Error("migration list is shorter than the ledger",
				"ledger", len(entries),
				"migrations", len(migrations),
				"missing", entry.Name,
			)
			return i, dberr.Migration("", "the migration list has been modified")
		}

		m := migrations[i]
		hash := m.Hash()
		if entry.Name != m.Name || entry.Hash != hash {
			e.metrics.IncRejected()
			e.logger.Error("applied migration has been modified",
				"name", m.Name,
				"ledger_name", entry.Name,
				"ledger_hash", entry.Hash,
				"hash", hash,
			)
			return i, dberr.Migration(m.Name, fmt.Sprintf("migration %s has been modified", m.Name))
		}

		e.metrics.IncVerified()
		e.logger.Debug("migration verified", "id", entry.ID, "name", m.Name, "hash", hash)
	}
	return len(entries), nil
}

// applyOne executes m's SQL as one batch and records it in the ledger.
func (e *Engine) applyOne(ctx context.Context, m Migration) error {
	hash := m.Hash()

	if !e.txPerMigration {
		if _, err := e.db.ExecContext(ctx, m.SQL); err != nil {
			return dberr.MigrationFailed(m.Name, "executing", err)
		}
		if err := recordEntry(ctx, e.db, m.Name, hash); err != nil {
			return dberr.MigrationFailed(m.Name, "recording", err)
		}
		e.logger.Info("migration applied", "name", m.Name, "hash", hash)
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return dberr.MigrationFailed(m.Name, "beginning", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return dberr.MigrationFailed(m.Name, "executing", err)
	}
	if err := recordEntry(ctx, tx, m.Name, hash); err != nil {
		return dberr.MigrationFailed(m.Name, "recording", err)
	}
	if err := tx.Commit(); err != nil {
		return dberr.MigrationFailed(m.Name, "committing", err)
	}

	e.logger.Info("migration applied", "name", m.Name, "hash", hash, "transactional", true)
	return nil
}

package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/migrate"
	"github.com/roach88/sqlbridge/internal/registry"
	"github.com/roach88/sqlbridge/internal/store"
	"github.com/roach88/sqlbridge/internal/value"
)

const outcomeOK = "ok"

// Harness executes one scenario against one registered database.
type Harness struct {
	reg    *registry.Registry
	name   string
	cfg    store.Config
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh database file in a private temporary
// directory, removed afterwards. Step failures are recorded in the result;
// the returned error is reserved for failures of the harness itself
// (temporary directory, opening the database, unreadable manifest).
func Run(scenario *Scenario) (result *Result, err error) {
	dir, err := os.MkdirTemp("", "sqlbridge-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		reg:  registry.New(),
		name: scenario.Name,
		cfg: store.Config{
			Driver: scenario.Driver,
			Path:   filepath.Join(dir, "scenario.db"),
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	defer func() {
		if err = closeAll(h.reg, err); err != nil {
			result = nil
		}
	}()

	if _, err := h.reg.Open(h.name, h.cfg); err != nil {
		return nil, fmt.Errorf("failed to open scenario database: %w", err)
	}

	ctx := context.Background()
	result = NewResult()

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	err = h.reg.With(h.name, func(st *store.Store) error {
		for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, st) {
			result.AddError(msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// closeAll releases every scenario database. A close failure fails the run
// unless it already failed.
func closeAll(reg interface{ CloseAll() error }, runErr error) error {
	if err := reg.CloseAll(); err != nil && runErr == nil {
		return fmt.Errorf("failed to close scenario database: %w", err)
	}
	return runErr
}

// executeStep runs one flow step, records it in the trace and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) error {
	event := TraceEvent{Op: step.op(), Outcome: outcomeOK}

	var stepErr error
	switch event.Op {
	case OpReopen:
		if err := h.reopen(); err != nil {
			return err
		}

	case OpMigrate:
		migrations := step.Migrate
		if step.Manifest != "" {
			loaded, err := migrate.LoadManifest(step.Manifest)
			if err != nil {
				return err
			}
			migrations = loaded
		}
		stepErr = h.reg.With(h.name, func(st *store.Store) error {
			report, err := st.Migrate(ctx, migrations,
				migrate.WithLogger(h.logger),
				migrate.WithTransactionalBatches(step.Tx),
			)
			event.Verified = report.Verified
			event.Applied = report.Applied
			return err
		})

	case OpBatch:
		stepErr = h.reg.With(h.name, func(st *store.Store) error {
			return st.Batch(ctx, step.Batch)
		})

	case OpUpdate:
		stepErr = h.reg.With(h.name, func(st *store.Store) error {
			res, err := st.Update(ctx, step.Update, step.Params)
			if err == nil {
				event.RowsAffected = &res.RowsAffected
			}
			return err
		})

	case OpSelect:
		stepErr = h.reg.With(h.name, func(st *store.Store) error {
			rows, err := st.Select(ctx, step.Select, step.Params)
			event.Rows = rows
			return err
		})
	}

	if stepErr != nil {
		event.Outcome = outcomeOf(stepErr)
	}
	result.addTrace(event)

	for _, msg := range checkExpect(index, step.Expect, event, stepErr) {
		result.AddError(msg)
	}

	h.logger.Debug("flow step completed",
		"step", index,
		"op", event.Op,
		"outcome", event.Outcome,
	)
	return nil
}

// reopen closes the scenario database and opens the same file again.
func (h *Harness) reopen() error {
	if err := h.reg.Close(h.name); err != nil {
		return fmt.Errorf("failed to close scenario database: %w", err)
	}
	if _, err := h.reg.Open(h.name, h.cfg); err != nil {
		return fmt.Errorf("failed to reopen scenario database: %w", err)
	}
	return nil
}

// outcomeOf names an error by its kind.
func outcomeOf(err error) string {
	if kind := dberr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// checkExpect compares a step's outcome with its expect clause and returns
// one message per mismatch.
func checkExpect(index int, expect *ExpectClause, event TraceEvent, err error) []string {
	prefix := fmt.Sprintf("flow[%d] (%s)", index, event.Op)

	wantError := ""
	if expect != nil {
		wantError = expect.Error
	}
	if wantError == "" && err != nil {
		return []string{fmt.Sprintf("%s: unexpected error: %v", prefix, err)}
	}
	if wantError != "" && event.Outcome != wantError {
		return []string{fmt.Sprintf("%s: expected %s error, got %s", prefix, wantError, event.Outcome)}
	}
	if expect == nil {
		return nil
	}

	var msgs []string
	if expect.Verified != nil && !slices.Equal(expect.Verified, event.Verified) {
		msgs = append(msgs, fmt.Sprintf("%s: expected verified %v, got %v", prefix, expect.Verified, event.Verified))
	}
	if expect.Applied != nil && !slices.Equal(expect.Applied, event.Applied) {
		msgs = append(msgs, fmt.Sprintf("%s: expected applied %v, got %v", prefix, expect.Applied, event.Applied))
	}
	if expect.RowsAffected != nil {
		if event.RowsAffected == nil || *event.RowsAffected != *expect.RowsAffected {
			got := "none"
			if event.RowsAffected != nil {
				got = fmt.Sprint(*event.RowsAffected)
			}
			msgs = append(msgs, fmt.Sprintf("%s: expected %d rows affected, got %s", prefix, *expect.RowsAffected, got))
		}
	}
	if expect.Rows != nil {
		if len(expect.Rows) != len(event.Rows) {
			msgs = append(msgs, fmt.Sprintf("%s: expected %d rows, got %d", prefix, len(expect.Rows), len(event.Rows)))
		} else {
			for i, want := range expect.Rows {
				if msg := matchRow(event.Rows[i], want, true); msg != "" {
					msgs = append(msgs, fmt.Sprintf("%s: row %d: %s", prefix, i, msg))
				}
			}
		}
	}
	return msgs
}

// matchRow compares row against expected column values and describes the
// first difference. With exact set, row must not have extra columns.
func matchRow(row value.Row, expected map[string]interface{}, exact bool) string {
	if exact && row.Len() != len(expected) {
		return fmt.Sprintf("expected columns %v, got %v", sortedKeys(expected), row.Columns())
	}
	for _, col := range sortedKeys(expected) {
		want, err := value.Parse(expected[col])
		if err != nil {
			return fmt.Sprintf("column %q: invalid expected value: %v", col, err)
		}
		got, ok := row.Get(col)
		if !ok {
			return fmt.Sprintf("column %q not present in result columns: %v", col, row.Columns())
		}
		if !value.Equal(want, got) {
			return fmt.Sprintf("column %q = %s, expected %s", col, value.Format(got), value.Format(want))
		}
	}
	return ""
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

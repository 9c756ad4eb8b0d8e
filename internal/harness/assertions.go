package harness

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/sqlbridge/internal/store"
	"github.com/roach88/sqlbridge/internal/value"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Identifiers cannot be bound as parameters, so they are checked before
// being interpolated into SQL.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Op, event.Outcome)
		}
	}

	return buf.String()
}

// assertLedger checks that the ledger holds exactly the expected names,
// in order.
func assertLedger(ctx context.Context, st *store.Store, assertion Assertion) error {
	entries, err := st.Migrations().History(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertLedger,
			Expected: fmt.Sprintf("ledger %v", assertion.Names),
			Actual:   fmt.Sprintf("history error: %v", err),
		}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := assertion.Names
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(names, want) {
		return &AssertionError{
			Type:     AssertLedger,
			Expected: fmt.Sprintf("ledger %v", want),
			Actual:   fmt.Sprintf("ledger %v", names),
		}
	}
	return nil
}

// assertFinalState checks that exactly one row matches assertion.Where and
// that it holds the expected values (subset semantics).
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, params, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Select(ctx, query, params)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	if msg := matchRow(rows[0], assertion.Expect, false); msg != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s to match %v", assertion.Table, whereDesc, assertion.Expect),
			Actual:   msg,
		}
	}
	return nil
}

// assertRowCount checks the number of rows in a table.
func assertRowCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	rows, err := st.Select(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", assertion.Table), nil)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s", assertion.Count, assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	n, _ := rows[0].Get("n")
	if !value.Equal(n, value.Integer(assertion.Count)) {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s", assertion.Count, assertion.Table),
			Actual:   fmt.Sprintf("%s rows", value.Format(n)),
		}
	}
	return nil
}

// assertTraceCount checks how many times an operation appears in the trace.
func assertTraceCount(result *Result, assertion Assertion) error {
	if got := result.count(assertion.Op); got != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s %d time(s)", assertion.Op, assertion.Count),
			Actual:   fmt.Sprintf("%s %d time(s)", assertion.Op, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause from where.
// Keys are sorted for determinism; each column binds to ":column".
func buildWhereClause(where map[string]interface{}) (string, map[string]any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	params := make(map[string]any, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = :%s", key, key))
		params[":"+key] = where[key]
	}

	return strings.Join(clauses, " AND "), params, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// EvaluateAssertions evaluates all assertions against the result and the
// final database. Returns one message per failed assertion.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, st *store.Store) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLedger:
			err = assertLedger(ctx, st, assertion)
		case AssertFinalState:
			err = assertFinalState(ctx, st, assertion)
		case AssertRowCount:
			err = assertRowCount(ctx, st, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

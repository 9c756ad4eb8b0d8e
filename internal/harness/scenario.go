package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlbridge/internal/migrate"
	"github.com/roach88/sqlbridge/internal/store"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Driver selects the database/sql driver. Defaults to sqlite3.
	Driver string `yaml:"driver,omitempty"`

	// Flow contains the steps, executed in order against one database.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final database and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one operation. Exactly one of Migrate, Manifest, Batch,
// Update, Select or Reopen is set.
type FlowStep struct {
	// Migrate is an inline migration list to reconcile.
	Migrate []migrate.Migration `yaml:"migrate,omitempty"`

	// Manifest is a manifest path to reconcile, relative to the scenario file.
	Manifest string `yaml:"manifest,omitempty"`

	// Tx runs each new migration in its own transaction.
	Tx bool `yaml:"tx,omitempty"`

	// Batch is SQL executed without parameters.
	Batch string `yaml:"batch,omitempty"`

	// Update is one parameterized statement.
	Update string `yaml:"update,omitempty"`

	// Select is one parameterized query.
	Select string `yaml:"select,omitempty"`

	// Params holds named parameters for Update and Select.
	Params map[string]interface{} `yaml:"params,omitempty"`

	// Reopen closes the database and opens it again, as a restarted
	// process would.
	Reopen bool `yaml:"reopen,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// op returns the step's operation name, or "" if none or several are set.
func (s FlowStep) op() string {
	var ops []string
	if s.Migrate != nil || s.Manifest != "" {
		ops = append(ops, OpMigrate)
	}
	if s.Batch != "" {
		ops = append(ops, OpBatch)
	}
	if s.Update != "" {
		ops = append(ops, OpUpdate)
	}
	if s.Select != "" {
		ops = append(ops, OpSelect)
	}
	if s.Reopen {
		ops = append(ops, OpReopen)
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// ExpectClause specifies expected step behavior.
// Only the fields that are set are checked.
type ExpectClause struct {
	// Error is the expected error kind ("migration", "database",
	// "marshalling", ...). Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Verified and Applied are the expected migrate report.
	Verified []string `yaml:"verified,omitempty"`
	Applied  []string `yaml:"applied,omitempty"`

	// RowsAffected is the expected update count.
	RowsAffected *int64 `yaml:"rows_affected,omitempty"`

	// Rows are the expected select rows, compared in order.
	Rows []map[string]interface{} `yaml:"rows,omitempty"`
}

// Assertion validates the final database or trace.
type Assertion struct {
	// Type is one of ledger, final_state, row_count, trace_count.
	Type string `yaml:"type"`

	// Names is the expected ledger content (ledger).
	Names []string `yaml:"names,omitempty"`

	// Table is the table to query (final_state, row_count).
	Table string `yaml:"table,omitempty"`

	// Where filters the row (final_state). All fields must match.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Op is the traced operation (trace_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number (row_count, trace_count).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertLedger     = "ledger"
	AssertFinalState = "final_state"
	AssertRowCount   = "row_count"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Manifest paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, step := range scenario.Flow {
		if step.Manifest != "" && !filepath.IsAbs(step.Manifest) {
			scenario.Flow[i].Manifest = filepath.Join(base, step.Manifest)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Driver != "" && s.Driver != store.DriverCGO && s.Driver != store.DriverPureGo {
		return fmt.Errorf("unknown driver %q", s.Driver)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		op := step.op()
		if op == "" {
			return fmt.Errorf("flow[%d]: exactly one of migrate, manifest, batch, update, select, reopen is required", i)
		}
		if step.Params != nil && op != OpUpdate && op != OpSelect {
			return fmt.Errorf("flow[%d]: params only apply to update and select", i)
		}
		if step.Tx && op != OpMigrate {
			return fmt.Errorf("flow[%d]: tx only applies to migrate", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLedger:
		// An empty list asserts an empty ledger
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

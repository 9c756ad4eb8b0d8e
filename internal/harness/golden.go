package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// goldenDir holds one <scenario>.golden file per snapshot-tested scenario.
const goldenDir = "testdata/golden"

// TraceSnapshot is the golden-file form of a run: the scenario name and
// every traced step.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

func snapshotOf(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{ScenarioName: name, Trace: result.Trace}
}

// marshalSnapshot renders a snapshot as indented JSON with a trailing newline.
func marshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs scenario and checks its trace against
// testdata/golden/<name>.golden. A mismatch fails t through goldie; pass
// -update to rewrite the file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden checks an existing result against the golden file for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := marshalSnapshot(snapshotOf(name, result))
	if err != nil {
		return err
	}

	goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, name, data)
	return nil
}

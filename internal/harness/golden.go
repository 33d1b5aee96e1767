package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/taskstore/internal/ir"
)

// GoldenDir is where golden traces live, relative to the test's package.
const GoldenDir = "testdata/golden"

// GoldenSuffix is the golden file extension.
const GoldenSuffix = ".golden"

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// Canonical returns the snapshot as canonical JSON.
func (s TraceSnapshot) Canonical() ([]byte, error) {
	events := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		events[i] = ev.canonical()
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         events,
	})
}

// GoldenBytes returns the golden file contents for a run of scenario.
func GoldenBytes(scenario *Scenario, result *Result) ([]byte, error) {
	return TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}.Canonical()
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares result's trace against the scenario's golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}

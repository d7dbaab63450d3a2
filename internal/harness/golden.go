package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/schema"
)

// TraceSnapshot captures the trace and final state of a scenario run.
// It is serialized with canonical JSON for byte comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Table        string       `json:"table"`
	Trace        []TraceEvent `json:"trace"`
	State        []ir.Object  `json:"state"`
}

// toCanonicalMap converts a TraceSnapshot to a map for canonical JSON.
// ir.MarshalCanonical handles IR values and plain maps, not structs.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
			"op":   event.Op,
		}
		if event.Args != nil {
			eventMap["args"] = event.Args
		}
		if event.Outcome != "" {
			eventMap["outcome"] = event.Outcome
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		traceList[i] = eventMap
	}

	state := make(ir.Array, len(s.State))
	for i, obj := range s.State {
		state[i] = obj
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"table":         s.Table,
		"trace":         traceList,
		"state":         state,
	}
}

// Snapshot renders the golden form of a scenario result.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		ScenarioName: scenario.Name,
		Table:        scenario.Table,
		Trace:        result.Trace,
		State:        result.State,
	}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed. A snapshot
// mismatch fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, sch schema.Schema, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, sch, opts...)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

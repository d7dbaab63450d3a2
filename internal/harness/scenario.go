package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a record-store conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Table names the declared table the scenario runs against.
	Table string `yaml:"table"`

	// Setup records are added before the flow and must succeed.
	Setup []map[string]any `yaml:"setup,omitempty"`

	// Flow is the main sequence of operations.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final table contents.
	Assertions []Assertion `yaml:"assertions"`

	// HandleToken fixes the handle token for deterministic logs.
	// Empty means "test-handle-default".
	HandleToken string `yaml:"handle_token,omitempty"`
}

// Operation names.
const (
	OpAdd    = "add"
	OpGet    = "get"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"
	OpClear  = "clear"
)

// Step is one operation in the flow.
type Step struct {
	// Op is one of add, get, list, update, delete, clear.
	Op string `yaml:"op"`

	// Record holds the fields for add.
	Record map[string]any `yaml:"record,omitempty"`

	// Field and Value select records for get, update and delete.
	Field string `yaml:"field,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Patch holds the fields to overwrite for update.
	Patch map[string]any `yaml:"patch,omitempty"`

	// Expect checks the outcome. If nil the operation must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// ID is the identifier returned by add or update.
	ID *int64 `yaml:"id,omitempty"`

	// Count is the number of records returned by get/list or removed by delete/clear.
	Count *int64 `yaml:"count,omitempty"`

	// Records are compared in order against get/list output.
	// Each entry is a subset match and may include "id".
	Records []map[string]any `yaml:"records,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// final_count, final_state.
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are matched as a subset against the call args (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number (trace_count, final_count).
	Count int `yaml:"count,omitempty"`

	// Where selects exactly one record by equality on every key (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected field values, subset match (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalCount    = "final_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if s.Table == "" {
		return fmt.Errorf("table is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpAdd:
		if st.Record == nil {
			return fmt.Errorf("flow[%d]: record is required for add (use {} for an empty record)", index)
		}
	case OpGet, OpDelete:
		if st.Field == "" {
			return fmt.Errorf("flow[%d]: field is required for %s", index, st.Op)
		}
	case OpUpdate:
		if st.Field == "" {
			return fmt.Errorf("flow[%d]: field is required for update", index)
		}
		if st.Patch == nil {
			return fmt.Errorf("flow[%d]: patch is required for update", index)
		}
	case OpList, OpClear:
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, st.Op)
	}
	if st.Expect != nil && st.Expect.Error != "" {
		if st.Expect.ID != nil || st.Expect.Count != nil || st.Expect.Records != nil {
			return fmt.Errorf("flow[%d].expect: error cannot be combined with id, count or records", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_count", index)
		}
	case AssertFinalState:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

package harness

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/recordstore"
	"github.com/roach88/recstore/internal/schema"
)

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
		for i, event := range e.Trace {
			if event.Type == EventCall {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Op, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a call matching
// the specified op and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventCall && event.Op == assertion.Op {
			if matchArgs(event.Args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with args %v", assertion.Op, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops first appear in the specified order.
// Ops don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type == EventCall && positions[event.Op] == 0 {
			positions[event.Op] = i + 1 // 1-indexed for readability
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev := assertion.Ops[i-1]
		curr := assertion.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the op is called exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventCall && event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d calls of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalCount checks the number of records left in the table.
func assertFinalCount(records []recordstore.Record, assertion Assertion) error {
	if len(records) != assertion.Count {
		return &AssertionError{
			Type:     AssertFinalCount,
			Expected: fmt.Sprintf("%d record(s)", assertion.Count),
			Actual:   fmt.Sprintf("%d record(s)", len(records)),
		}
	}
	return nil
}

// assertFinalState finds the single record matching every where key and
// checks the expected fields (subset semantics).
func assertFinalState(sch schema.Schema, records []recordstore.Record, assertion Assertion) error {
	where, err := coerceExpected(sch, assertion.Where)
	if err != nil {
		return fmt.Errorf("final_state where: %w", err)
	}
	expect, err := coerceExpected(sch, assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}

	var matched []recordstore.Record
	for _, r := range records {
		if len(diffFields(r, where)) == 0 {
			matched = append(matched, r)
		}
	}

	whereDesc := formatWhere(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record where %s", whereDesc),
			Actual:   "record not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one record where %s", whereDesc),
			Actual:   fmt.Sprintf("%d records matched (assertion is ambiguous)", len(matched)),
		}
	}

	if diffs := diffFields(matched[0], expect); len(diffs) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record where %s to have %s", whereDesc, formatWhere(assertion.Expect)),
			Actual:   strings.Join(diffs, "; "),
		}
	}
	return nil
}

// matchRecords compares get/list output against expected records in order.
func matchRecords(sch schema.Schema, actual []recordstore.Record, expected []map[string]any) []string {
	if len(actual) != len(expected) {
		return []string{fmt.Sprintf("expected %d record(s), got %d", len(expected), len(actual))}
	}
	var errs []string
	for i, raw := range expected {
		exp, err := coerceExpected(sch, raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("records[%d]: %v", i, err))
			continue
		}
		for _, d := range diffFields(actual[i], exp) {
			errs = append(errs, fmt.Sprintf("records[%d]: %s", i, d))
		}
	}
	return errs
}

// coerceExpected converts scenario values to the field types so they
// compare the way the store compares them. "id" is accepted.
func coerceExpected(sch schema.Schema, raw map[string]any) (ir.Object, error) {
	obj := make(ir.Object, len(raw))
	for k, v := range raw {
		val, err := sch.Coerce(k, v)
		if err != nil {
			return nil, err
		}
		obj[k] = val
	}
	return obj, nil
}

// diffFields lists the fields of want that r does not hold, sorted by name.
// A null in want matches an absent field.
func diffFields(r recordstore.Record, want ir.Object) []string {
	var diffs []string
	for _, k := range want.SortedKeys() {
		got := r.Get(k)
		if !valuesEqual(got, want[k]) {
			diffs = append(diffs, fmt.Sprintf("%s = %s, want %s", k, render(got), render(want[k])))
		}
	}
	return diffs
}

// valuesEqual compares two values by canonical form, the same rule the
// store uses for Object fields.
func valuesEqual(a, b ir.Value) bool {
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists {
			return false
		}
		a, errA := ir.FromAny(actualVal)
		e, errE := ir.FromAny(expectedVal)
		if errA != nil || errE != nil || !valuesEqual(a, e) {
			return false
		}
	}
	return true
}

// formatWhere creates a human-readable description of key=value conditions.
func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// AssertionContext provides the final table contents for state assertions.
type AssertionContext struct {
	Schema  schema.Schema
	Records []recordstore.Record
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalCount, AssertFinalState:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: %s requires the final table state", i, assertion.Type)
			} else if assertion.Type == AssertFinalCount {
				err = assertFinalCount(actx.Records, assertion)
			} else {
				err = assertFinalState(actx.Schema, actx.Records, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

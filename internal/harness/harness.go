package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/recordstore"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/store"
	"github.com/roach88/recstore/internal/testutil"
)

// OutcomeStorage is the outcome recorded for engine failures, which carry
// driver-specific messages.
const OutcomeStorage = "STORAGE"

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	driver string
	logger *slog.Logger
}

// WithDriver selects the SQLite driver for the in-memory store.
func WithDriver(name string) Option {
	return func(c *runConfig) { c.driver = name }
}

// WithLogger sets the logger passed to the store and table.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Harness executes one scenario against one open table.
type Harness struct {
	table  *recordstore.Table
	schema schema.Schema
	logger *slog.Logger
}

// Run executes a scenario against sch and returns the result.
//
// Each run uses a fresh in-memory database. A returned error means the
// scenario could not be executed (bad setup, store failure); failed
// expectations are reported in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario, sch schema.Schema, opts ...Option) (*Result, error) {
	cfg := runConfig{
		driver: store.DriverSQLite3,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if sch.Name() != scenario.Table {
		return nil, fmt.Errorf("scenario %s targets table %q, got schema for %q", scenario.Name, scenario.Table, sch.Name())
	}

	st, err := store.Open(":memory:", store.WithDriver(cfg.driver), store.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	table, err := recordstore.OpenTable(ctx, st, sch,
		recordstore.WithLogger(cfg.logger),
		recordstore.WithTokenGenerator(testutil.NewFixedToken(scenario.HandleToken)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", sch.Name(), err)
	}
	defer table.Close()

	h := &Harness{table: table, schema: sch, logger: cfg.logger}

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	records, err := table.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = make([]ir.Object, len(records))
	for i, r := range records {
		result.State[i] = r.Object()
	}

	actx := &AssertionContext{Schema: sch, Records: records}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup adds the seed records. Setup is not traced.
func (h *Harness) executeSetup(ctx context.Context, setup []map[string]any) error {
	for i, raw := range setup {
		rec, err := h.schema.CoerceRecord(raw)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		id, err := h.table.Add(ctx, rec)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		h.logger.Debug("setup record added", "step", i, "id", id)
	}
	return nil
}

// executeStep runs one flow step, traces it, and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	result.AddCallTrace(step.Op, stepArgs(step))

	out, err := h.invoke(ctx, step)
	outcome := OutcomeOK
	var traced any
	if err != nil {
		outcome = outcomeOf(err)
	} else {
		traced = out.traceValue()
	}
	result.AddReturnTrace(step.Op, outcome, traced)

	h.logger.Debug("flow step completed", "step", i, "op", step.Op, "outcome", outcome)

	for _, msg := range h.checkExpect(step, out, outcome, err) {
		result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
	}
}

// stepOutput is what an operation returned.
type stepOutput struct {
	id      *int64
	count   *int64
	records []recordstore.Record
}

func (o stepOutput) traceValue() ir.Object {
	obj := ir.Object{}
	if o.id != nil {
		obj["id"] = ir.Number(float64(*o.id))
	}
	if o.count != nil {
		obj["count"] = ir.Number(float64(*o.count))
	}
	if o.records != nil {
		arr := make(ir.Array, len(o.records))
		for i, r := range o.records {
			arr[i] = r.Object()
		}
		obj["records"] = arr
	}
	return obj
}

func (h *Harness) invoke(ctx context.Context, step Step) (stepOutput, error) {
	var out stepOutput

	switch step.Op {
	case OpAdd:
		rec, err := h.schema.CoerceRecord(step.Record)
		if err != nil {
			return out, err
		}
		id, err := h.table.Add(ctx, rec)
		if err != nil {
			return out, err
		}
		out.id = &id

	case OpGet:
		value, err := h.schema.Coerce(step.Field, step.Value)
		if err != nil {
			return out, err
		}
		records, err := h.table.GetByField(ctx, step.Field, value)
		if err != nil {
			return out, err
		}
		n := int64(len(records))
		out.count, out.records = &n, records

	case OpList:
		records, err := h.table.GetAll(ctx)
		if err != nil {
			return out, err
		}
		n := int64(len(records))
		out.count, out.records = &n, records

	case OpUpdate:
		value, err := h.schema.Coerce(step.Field, step.Value)
		if err != nil {
			return out, err
		}
		patch, err := h.schema.CoerceRecord(step.Patch)
		if err != nil {
			return out, err
		}
		id, err := h.table.Update(ctx, step.Field, value, patch)
		if err != nil {
			return out, err
		}
		out.id = &id

	case OpDelete:
		value, err := h.schema.Coerce(step.Field, step.Value)
		if err != nil {
			return out, err
		}
		n, err := h.table.DeleteByField(ctx, step.Field, value)
		if err != nil {
			return out, err
		}
		out.count = &n

	case OpClear:
		n, err := h.table.DeleteAll(ctx)
		if err != nil {
			return out, err
		}
		out.count = &n

	default:
		return out, fmt.Errorf("unknown op %q", step.Op)
	}

	return out, nil
}

func (h *Harness) checkExpect(step Step, out stepOutput, outcome string, err error) []string {
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	if exp.Error != "" {
		if outcome != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", exp.Error, describe(outcome, err))}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("expected success, got %s", describe(outcome, err))}
	}

	var errs []string
	if exp.ID != nil && (out.id == nil || *out.id != *exp.ID) {
		errs = append(errs, fmt.Sprintf("expected id %d, got %s", *exp.ID, formatOptional(out.id)))
	}
	if exp.Count != nil && (out.count == nil || *out.count != *exp.Count) {
		errs = append(errs, fmt.Sprintf("expected count %d, got %s", *exp.Count, formatOptional(out.count)))
	}
	if exp.Records != nil {
		errs = append(errs, matchRecords(h.schema, out.records, exp.Records)...)
	}
	return errs
}

func stepArgs(step Step) map[string]any {
	args := map[string]any{}
	if step.Record != nil {
		args["record"] = step.Record
	}
	if step.Field != "" {
		args["field"] = step.Field
		args["value"] = step.Value
	}
	if step.Patch != nil {
		args["patch"] = step.Patch
	}
	return args
}

// outcomeOf maps an operation error to the code recorded in the trace.
func outcomeOf(err error) string {
	if code := recordstore.CodeOf(err); code != "" {
		return string(code)
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		switch verr.Code {
		case schema.ErrCodeUnknownField, schema.ErrCodeReservedName:
			return string(recordstore.CodeUnknownField)
		}
		return string(recordstore.CodeTypeMismatch)
	}
	return OutcomeStorage
}

func describe(outcome string, err error) string {
	if err == nil {
		return outcome
	}
	return fmt.Sprintf("%s (%v)", outcome, err)
}

func formatOptional(v *int64) string {
	if v == nil {
		return "nothing"
	}
	return fmt.Sprintf("%d", *v)
}

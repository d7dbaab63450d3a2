package recordstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/queryir"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/store"
)

// Engine is the storage engine a table runs on. *store.Store implements it.
type Engine interface {
	Declare(ctx context.Context, sch schema.Schema) (store.Declaration, error)
	Insert(ctx context.Context, sch schema.Schema, rec ir.Object) (int64, error)
	InsertAll(ctx context.Context, sch schema.Schema, recs []ir.Object) ([]int64, error)
	Find(ctx context.Context, sch schema.Schema, filter queryir.Predicate, limit int) ([]store.Row, error)
	Delete(ctx context.Context, sch schema.Schema, filter queryir.Predicate) (int64, error)
	UpdateFirst(ctx context.Context, sch schema.Schema, filter queryir.Predicate, patch ir.Object) (int64, bool, error)
}

var _ Engine = (*store.Store)(nil)

// Table is a Ready record table. It is safe for concurrent use; the engine
// serializes writes.
type Table struct {
	engine  Engine
	schema  schema.Schema
	version int
	token   string
	logger  *slog.Logger
	closed  atomic.Bool
}

// Name returns the table name.
func (t *Table) Name() string { return t.schema.Name() }

// Schema returns the schema the table was opened with.
func (t *Table) Schema() schema.Schema { return t.schema }

// Version returns the catalog version recorded when the table was declared.
func (t *Table) Version() int { return t.version }

// Token returns the handle token used in log records.
func (t *Table) Token() string { return t.token }

// Close marks the table closed. Later operations fail with CLOSED.
// The engine stays open. Close is idempotent.
func (t *Table) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.logger.Debug("table closed")
	}
	return nil
}

func (t *Table) check() error {
	if t.closed.Load() {
		return closedError(t.schema.Name())
	}
	return nil
}

func (t *Table) filter(field string, value ir.Value) (queryir.Predicate, error) {
	if err := t.schema.CheckValue(field, value); err != nil {
		return nil, fromValidation(err)
	}
	return queryir.FieldEquals(field, value), nil
}

// Add inserts rec and returns its identifier. No duplicate check is made
// beyond unique fields, whose violations come back from the engine.
func (t *Table) Add(ctx context.Context, rec ir.Object) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	if err := t.schema.CheckRecord(rec); err != nil {
		return 0, fromValidation(err)
	}

	id, err := t.engine.Insert(ctx, t.schema, rec)
	if err != nil {
		return 0, err
	}
	t.logger.Debug("record added", "id", id)
	return id, nil
}

// AddAll inserts recs atomically and returns their identifiers in order.
// Every record is validated first; on any failure nothing is stored.
func (t *Table) AddAll(ctx context.Context, recs []ir.Object) ([]int64, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	for i, rec := range recs {
		if err := t.schema.CheckRecord(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, fromValidation(err))
		}
	}

	ids, err := t.engine.InsertAll(ctx, t.schema, recs)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("records added", "count", len(ids))
	return ids, nil
}

// GetByField returns every record whose field equals value, in identifier
// order. field may be "id". A null value matches records lacking the field.
// Returns an empty, non-nil slice when nothing matches.
func (t *Table) GetByField(ctx context.Context, field string, value ir.Value) ([]Record, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	filter, err := t.filter(field, value)
	if err != nil {
		return nil, err
	}

	rows, err := t.engine.Find(ctx, t.schema, filter, 0)
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows), nil
}

// GetAll returns every record in identifier order.
func (t *Table) GetAll(ctx context.Context) ([]Record, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	rows, err := t.engine.Find(ctx, t.schema, nil, 0)
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows), nil
}

// Update applies patch to the first record (lowest identifier) whose field
// equals value and returns that record's identifier. Only fields present
// in patch change; a null clears the field.
//
// Returns a NOT_FOUND error, and writes nothing, when no record matches.
func (t *Table) Update(ctx context.Context, field string, value ir.Value, patch ir.Object) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	filter, err := t.filter(field, value)
	if err != nil {
		return 0, err
	}
	if err := t.schema.CheckRecord(patch); err != nil {
		return 0, fromValidation(err)
	}

	id, found, err := t.engine.UpdateFirst(ctx, t.schema, filter, patch)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, notFoundError(t.schema.Name(), field)
	}
	t.logger.Debug("record updated", "id", id, "fields", len(patch))
	return id, nil
}

// DeleteByField deletes every record whose field equals value and returns
// how many were deleted. No match is not an error.
func (t *Table) DeleteByField(ctx context.Context, field string, value ir.Value) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	filter, err := t.filter(field, value)
	if err != nil {
		return 0, err
	}

	n, err := t.engine.Delete(ctx, t.schema, filter)
	if err != nil {
		return 0, err
	}
	t.logger.Debug("records deleted", "field", field, "count", n)
	return n, nil
}

// DeleteAll deletes every record and returns how many were deleted.
// Identifiers are not reused afterwards.
func (t *Table) DeleteAll(ctx context.Context) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	n, err := t.engine.Delete(ctx, t.schema, nil)
	if err != nil {
		return 0, err
	}
	t.logger.Info("table cleared", "count", n)
	return n, nil
}

package recordstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/schema"
)

// State is the lifecycle state of a Handle.
type State int

const (
	StateOpening State = iota
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Handle is a table that may still be opening.
//
// Operations on an Opening handle fail with NOT_READY instead of blocking.
// Use Wait to obtain the Ready Table once declaration has finished.
type Handle struct {
	name   string
	token  string
	logger *slog.Logger

	done   chan struct{} // closed when declaration finishes
	table  *Table        // set before done is closed, nil on failure
	err    error         // set before done is closed
	closed atomic.Bool
}

// Open starts declaring sch on engine and returns immediately.
// ctx bounds the declaration.
func Open(ctx context.Context, engine Engine, sch schema.Schema, opts ...Option) *Handle {
	o := buildOptions(opts)
	token := o.tokens.Generate()
	h := &Handle{
		name:   sch.Name(),
		token:  token,
		logger: o.logger.With("table", sch.Name(), "handle", token),
		done:   make(chan struct{}),
	}

	h.logger.Debug("table opening")
	go h.declare(ctx, engine, sch)
	return h
}

// OpenTable opens sch on engine and waits until it is Ready.
func OpenTable(ctx context.Context, engine Engine, sch schema.Schema, opts ...Option) (*Table, error) {
	return Open(ctx, engine, sch, opts...).Wait(ctx)
}

func (h *Handle) declare(ctx context.Context, engine Engine, sch schema.Schema) {
	defer close(h.done)

	decl, err := engine.Declare(ctx, sch)
	if err != nil {
		h.err = fmt.Errorf("declare table %q: %w", sch.Name(), err)
		h.logger.Error("table declaration failed", "error", err)
		return
	}

	t := &Table{
		engine:  engine,
		schema:  sch,
		version: decl.Version,
		token:   h.token,
		logger:  h.logger,
	}
	if h.closed.Load() {
		t.closed.Store(true)
	}
	h.table = t
	h.logger.Info("table ready",
		"version", decl.Version,
		"created", decl.Created,
		"migrated", decl.Migrated)
}

// Name returns the table name.
func (h *Handle) Name() string { return h.name }

// Token returns the handle token used in log records.
func (h *Handle) Token() string { return h.token }

// Ready returns a channel closed once declaration has finished,
// successfully or not.
func (h *Handle) Ready() <-chan struct{} { return h.done }

// State reports the current lifecycle state.
func (h *Handle) State() State {
	if h.closed.Load() {
		return StateClosed
	}
	select {
	case <-h.done:
	default:
		return StateOpening
	}
	if h.err != nil {
		return StateFailed
	}
	return StateReady
}

// Err returns the declaration error, or nil while opening or once ready.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until declaration finishes or ctx is done, then returns the
// Ready table or the declaration error.
func (h *Handle) Wait(ctx context.Context) (*Table, error) {
	if h.closed.Load() {
		return nil, closedError(h.name)
	}
	select {
	case <-h.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return h.current()
}

// Close moves the handle to Closed. A table already handed out by Wait is
// closed as well. The engine stays open. Close is idempotent.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	select {
	case <-h.done:
		if h.table != nil {
			return h.table.Close()
		}
	default:
	}
	h.logger.Debug("handle closed while opening")
	return nil
}

// current returns the Ready table without blocking.
func (h *Handle) current() (*Table, error) {
	if h.closed.Load() {
		return nil, closedError(h.name)
	}
	select {
	case <-h.done:
	default:
		return nil, notReadyError(h.name)
	}
	if h.err != nil {
		return nil, h.err
	}
	return h.table, nil
}

// Add inserts rec. See Table.Add.
func (h *Handle) Add(ctx context.Context, rec ir.Object) (int64, error) {
	t, err := h.current()
	if err != nil {
		return 0, err
	}
	return t.Add(ctx, rec)
}

// AddAll inserts recs atomically. See Table.AddAll.
func (h *Handle) AddAll(ctx context.Context, recs []ir.Object) ([]int64, error) {
	t, err := h.current()
	if err != nil {
		return nil, err
	}
	return t.AddAll(ctx, recs)
}

// GetByField returns every record whose field equals value. See Table.GetByField.
func (h *Handle) GetByField(ctx context.Context, field string, value ir.Value) ([]Record, error) {
	t, err := h.current()
	if err != nil {
		return nil, err
	}
	return t.GetByField(ctx, field, value)
}

// GetAll returns every record. See Table.GetAll.
func (h *Handle) GetAll(ctx context.Context) ([]Record, error) {
	t, err := h.current()
	if err != nil {
		return nil, err
	}
	return t.GetAll(ctx)
}

// Update patches the first match. See Table.Update.
func (h *Handle) Update(ctx context.Context, field string, value ir.Value, patch ir.Object) (int64, error) {
	t, err := h.current()
	if err != nil {
		return 0, err
	}
	return t.Update(ctx, field, value, patch)
}

// DeleteByField deletes every match. See Table.DeleteByField.
func (h *Handle) DeleteByField(ctx context.Context, field string, value ir.Value) (int64, error) {
	t, err := h.current()
	if err != nil {
		return 0, err
	}
	return t.DeleteByField(ctx, field, value)
}

// DeleteAll deletes every record. See Table.DeleteAll.
func (h *Handle) DeleteAll(ctx context.Context) (int64, error) {
	t, err := h.current()
	if err != nil {
		return 0, err
	}
	return t.DeleteAll(ctx)
}

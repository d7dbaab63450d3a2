package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/schema"
)

// Codec converts between a Go type and records.
type Codec[T any] interface {
	Encode(v T) (ir.Object, error)
	Decode(r Record) (T, error)
}

// CodecFuncs adapts a pair of functions to Codec.
type CodecFuncs[T any] struct {
	EncodeFunc func(T) (ir.Object, error)
	DecodeFunc func(Record) (T, error)
}

func (c CodecFuncs[T]) Encode(v T) (ir.Object, error) { return c.EncodeFunc(v) }
func (c CodecFuncs[T]) Decode(r Record) (T, error)    { return c.DecodeFunc(r) }

// JSONCodec maps T through its encoding/json form.
//
// Encoding coerces each JSON key to the schema's field type, so bigint
// fields may be Go strings or integers and binary fields []byte. An "id"
// key is dropped on encode and filled from the record on decode. Keys
// that are not schema fields fail with UNKNOWN_FIELD; tag them `json:"-"`.
type JSONCodec[T any] struct {
	Schema schema.Schema
}

func (c JSONCodec[T]) Encode(v T) (ir.Object, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("encode %T: not a JSON object: %w", v, err)
	}
	delete(raw, schema.IDField)

	rec, err := c.Schema.CoerceRecord(raw)
	if err != nil {
		return nil, fromValidation(err)
	}
	return rec, nil
}

func (c JSONCodec[T]) Decode(r Record) (T, error) {
	var v T
	data, err := r.MarshalJSON()
	if err != nil {
		return v, fmt.Errorf("decode record %d: %w", r.ID, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode record %d: %w", r.ID, err)
	}
	return v, nil
}

// Typed wraps a Table with a Codec so callers work with Go values.
type Typed[T any] struct {
	table *Table
	codec Codec[T]
}

// NewTyped creates a typed view of table.
func NewTyped[T any](table *Table, codec Codec[T]) *Typed[T] {
	return &Typed[T]{table: table, codec: codec}
}

// Table returns the underlying table.
func (t *Typed[T]) Table() *Table { return t.table }

// Add encodes v and inserts it.
func (t *Typed[T]) Add(ctx context.Context, v T) (int64, error) {
	rec, err := t.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return t.table.Add(ctx, rec)
}

// GetByField returns the decoded records whose field equals value.
func (t *Typed[T]) GetByField(ctx context.Context, field string, value ir.Value) ([]T, error) {
	records, err := t.table.GetByField(ctx, field, value)
	if err != nil {
		return nil, err
	}
	return t.decodeAll(records)
}

// GetAll returns every record decoded.
func (t *Typed[T]) GetAll(ctx context.Context) ([]T, error) {
	records, err := t.table.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return t.decodeAll(records)
}

// Update encodes patch and applies it to the first match.
// Every field the codec emits is overwritten.
func (t *Typed[T]) Update(ctx context.Context, field string, value ir.Value, patch T) (int64, error) {
	rec, err := t.codec.Encode(patch)
	if err != nil {
		return 0, err
	}
	return t.table.Update(ctx, field, value, rec)
}

// DeleteByField deletes every match.
func (t *Typed[T]) DeleteByField(ctx context.Context, field string, value ir.Value) (int64, error) {
	return t.table.DeleteByField(ctx, field, value)
}

// DeleteAll deletes every record.
func (t *Typed[T]) DeleteAll(ctx context.Context) (int64, error) {
	return t.table.DeleteAll(ctx)
}

func (t *Typed[T]) decodeAll(records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := t.codec.Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

package store

import (
	"fmt"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/schema"
)

// decodeColumn converts a raw driver value back into an ir.Value for a
// field of type t. Drivers disagree on whether TEXT scans as string or
// []byte and whether REAL columns holding whole numbers come back as
// int64, so every representation is accepted.
func decodeColumn(t schema.FieldType, raw any) (ir.Value, error) {
	if raw == nil {
		return ir.Null{}, nil
	}

	switch t {
	case schema.TypeString:
		switch v := raw.(type) {
		case string:
			return ir.String(v), nil
		case []byte:
			return ir.String(string(v)), nil
		}
	case schema.TypeNumber:
		switch v := raw.(type) {
		case float64:
			return ir.Number(v), nil
		case int64:
			return ir.Number(float64(v)), nil
		}
	case schema.TypeBoolean:
		switch v := raw.(type) {
		case int64:
			return ir.Bool(v != 0), nil
		case bool:
			return ir.Bool(v), nil
		case float64:
			return ir.Bool(v != 0), nil
		}
	case schema.TypeBigInt:
		switch v := raw.(type) {
		case string:
			return ir.ParseBigInt(v)
		case []byte:
			return ir.ParseBigInt(string(v))
		case int64:
			return ir.BigIntFromInt64(v), nil
		}
	case schema.TypeObject:
		switch v := raw.(type) {
		case string:
			return unmarshalObject([]byte(v))
		case []byte:
			return unmarshalObject(v)
		}
	case schema.TypeBinary:
		switch v := raw.(type) {
		case []byte:
			// The driver may reuse its buffer after the next Scan.
			return ir.Bytes(append([]byte{}, v...)), nil
		case string:
			return ir.Bytes([]byte(v)), nil
		}
	}

	return nil, fmt.Errorf("cannot decode %T as %s", raw, t)
}

// unmarshalObject parses the canonical JSON stored for object fields.
// Uses ir.UnmarshalValue which keeps integers beyond 2^53 exact.
func unmarshalObject(data []byte) (ir.Value, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	switch v.(type) {
	case ir.Object, ir.Array:
		return v, nil
	}
	return nil, fmt.Errorf("stored object column holds %s", ir.KindOf(v))
}

// decodeID converts the raw identifier column.
func decodeID(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	}
	return 0, fmt.Errorf("cannot decode identifier %T", raw)
}

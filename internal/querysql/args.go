package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/recstore/internal/ir"
)

// Arg converts a value to the driver argument stored in its column.
// Encodings are chosen so SQL equality matches value equality:
// objects and arrays as canonical JSON, big integers as base-10 text,
// booleans as 0/1.
func Arg(v ir.Value) (any, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.String:
		return string(val), nil
	case ir.Number:
		return float64(val), nil
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.BigInt:
		return val.String(), nil
	case ir.Bytes:
		if val == nil {
			return []byte{}, nil
		}
		return []byte(val), nil
	case ir.Object, ir.Array:
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// Quote quotes an SQL identifier.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

package ir

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the kinds a record field can hold.
// Only Null, String, Number, Bool, BigInt, Bytes, Array, and Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null marks an absent field.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a text value.
type String string

func (String) value() {}

// Number is a finite float64 value.
type Number float64

func (Number) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// BigInt is an arbitrary precision integer.
// The zero value is 0. BigInt never aliases the *big.Int it was built from.
type BigInt struct {
	n *big.Int
}

func (BigInt) value() {}

// Bytes is an opaque binary value.
type Bytes []byte

func (Bytes) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// NewBigInt copies n into a BigInt.
func NewBigInt(n *big.Int) BigInt {
	if n == nil {
		return BigInt{}
	}
	return BigInt{n: new(big.Int).Set(n)}
}

// BigIntFromInt64 creates a BigInt from an int64.
func BigIntFromInt64(i int64) BigInt {
	return BigInt{n: big.NewInt(i)}
}

// ParseBigInt parses a base-10 integer literal.
func ParseBigInt(s string) (BigInt, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return BigInt{}, fmt.Errorf("invalid big integer %q", s)
	}
	return BigInt{n: n}, nil
}

// Int returns a copy of the underlying integer.
func (b BigInt) Int() *big.Int {
	if b.n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.n)
}

// String returns the canonical base-10 form.
func (b BigInt) String() string {
	if b.n == nil {
		return "0"
	}
	return b.n.String()
}

// Equal reports whether both integers hold the same number.
func (b BigInt) Equal(other BigInt) bool {
	return b.Int().Cmp(other.Int()) == 0
}

// MarshalJSON encodes a BigInt as a decimal string so precision survives JSON readers.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// KindOf names the kind of v for diagnostics.
func KindOf(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case BigInt:
		return "bigint"
	case Bytes:
		return "bytes"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("name", String("cart")), P("count", Number(5)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewObject creates an Object from key-value pairs.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Clone returns a shallow copy of obj.
func (obj Object) Clone() Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's string comparison orders by UTF-8 bytes, which differs for astral code points.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
// NOTE: not canonical (no NFC normalization). Use MarshalCanonical for equality and hashing.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", KindOf(v))
	}
	*obj = o
	return nil
}

// MarshalValue marshals a Value to plain JSON.
// Bytes become base64 strings and BigInt becomes a decimal string.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Number:
		if err := checkFinite(float64(val)); err != nil {
			return nil, err
		}
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case BigInt:
		return val.MarshalJSON()
	case Bytes:
		return json.Marshal(base64.StdEncoding.EncodeToString(val))
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes JSON into a Value.
// Integer literals that float64 cannot hold exactly decode as BigInt.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// maxExactFloat is the largest integer magnitude float64 holds exactly (2^53).
const maxExactFloat = 1 << 53

// FromAny converts a decoded Go value (JSON, YAML, or native) into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case []byte:
		return Bytes(bytes.Clone(val)), nil
	case *big.Int:
		return NewBigInt(val), nil
	case json.Number:
		return numberFromLiteral(string(val))
	case float64:
		if err := checkFinite(val); err != nil {
			return nil, err
		}
		return Number(val), nil
	case float32:
		return FromAny(float64(val))
	case int:
		return intValue(int64(val)), nil
	case int8:
		return intValue(int64(val)), nil
	case int16:
		return intValue(int64(val)), nil
	case int32:
		return intValue(int64(val)), nil
	case int64:
		return intValue(val), nil
	case uint:
		return uintValue(uint64(val)), nil
	case uint8:
		return uintValue(uint64(val)), nil
	case uint16:
		return uintValue(uint64(val)), nil
	case uint32:
		return uintValue(uint64(val)), nil
	case uint64:
		return uintValue(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v: keys must be strings", k)
			}
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func intValue(i int64) Value {
	if i > maxExactFloat || i < -maxExactFloat {
		return BigIntFromInt64(i)
	}
	return Number(i)
}

func uintValue(u uint64) Value {
	if u > maxExactFloat {
		return NewBigInt(new(big.Int).SetUint64(u))
	}
	return Number(u)
}

// numberFromLiteral keeps large integer literals exact.
func numberFromLiteral(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, ok := new(big.Int).SetString(s, 10)
		if ok && n.IsInt64() {
			return intValue(n.Int64()), nil
		}
		if ok {
			return BigInt{n: n}, nil
		}
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if err := checkFinite(f); err != nil {
		return nil, err
	}
	return Number(f), nil
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v", f)
	}
	return nil
}

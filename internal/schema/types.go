package schema

import (
	"fmt"
	"strings"
)

// FieldType is the declared type of a schema field.
type FieldType int

const (
	TypeString FieldType = iota + 1
	TypeNumber
	TypeBoolean
	TypeObject
	TypeBigInt
	TypeBinary
)

var fieldTypeNames = map[FieldType]string{
	TypeString:  "string",
	TypeNumber:  "number",
	TypeBoolean: "boolean",
	TypeObject:  "object",
	TypeBigInt:  "bigint",
	TypeBinary:  "binary",
}

// AllTypes lists every FieldType in declaration order.
var AllTypes = []FieldType{TypeString, TypeNumber, TypeBoolean, TypeObject, TypeBigInt, TypeBinary}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is one of the declared types.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// ParseFieldType parses a type name. "bool" and "bytes" are accepted as aliases.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString, nil
	case "number":
		return TypeNumber, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "object":
		return TypeObject, nil
	case "bigint":
		return TypeBigInt, nil
	case "binary", "bytes":
		return TypeBinary, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid field type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(data []byte) error {
	parsed, err := ParseFieldType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Field is one declared column.
type Field struct {
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Unique bool      `json:"unique,omitempty"`
}

// F is a shorthand for a non-unique Field.
func F(name string, typ FieldType) Field {
	return Field{Name: name, Type: typ}
}

// ValidationErrorCode categorizes schema and value validation failures.
type ValidationErrorCode string

const (
	ErrCodeInvalidName    ValidationErrorCode = "INVALID_NAME"
	ErrCodeReservedName   ValidationErrorCode = "RESERVED_NAME"
	ErrCodeDuplicateField ValidationErrorCode = "DUPLICATE_FIELD"
	ErrCodeInvalidType    ValidationErrorCode = "INVALID_TYPE"
	ErrCodeUnknownField   ValidationErrorCode = "UNKNOWN_FIELD"
	ErrCodeTypeMismatch   ValidationErrorCode = "TYPE_MISMATCH"
)

// ValidationError reports a schema declaration or value that does not conform.
type ValidationError struct {
	Code    ValidationErrorCode
	Table   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Table != "" && e.Field != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Table, e.Field, e.Message)
	case e.Table != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Table, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

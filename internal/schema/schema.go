package schema

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/roach88/recstore/internal/ir"
)

// IDField is the engine-assigned identifier column.
const IDField = "id"

// CatalogTable is the storage engine's declaration catalog; no schema may use it.
const CatalogTable = "_recstore_tables"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema is a table name plus its ordered field declarations.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// New validates and builds a Schema. The field slice is copied.
func New(name string, fields ...Field) (Schema, error) {
	s := Schema{
		name:   name,
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	if err := s.validate(); err != nil {
		return Schema{}, err
	}
	for i, f := range s.fields {
		s.index[f.Name] = i
	}
	return s, nil
}

// MustNew is like New but panics on error. Intended for tests and static declarations.
func MustNew(name string, fields ...Field) Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schema) validate() error {
	if err := checkIdent(s.name, "", "table"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		if err := checkIdent(s.name, f.Name, "field"); err != nil {
			return err
		}
		if strings.EqualFold(f.Name, IDField) {
			return &ValidationError{
				Code:    ErrCodeReservedName,
				Table:   s.name,
				Field:   f.Name,
				Message: "the identifier field is managed by the storage engine",
			}
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			return &ValidationError{
				Code:    ErrCodeDuplicateField,
				Table:   s.name,
				Field:   f.Name,
				Message: "field declared more than once",
			}
		}
		seen[key] = true
		if !f.Type.Valid() {
			return &ValidationError{
				Code:    ErrCodeInvalidType,
				Table:   s.name,
				Field:   f.Name,
				Message: fmt.Sprintf("invalid field type %d", int(f.Type)),
			}
		}
	}
	return nil
}

// checkIdent validates a table or field name. SQLite identifiers are
// case-insensitive, so reserved prefixes are matched case-insensitively.
func checkIdent(table, field, what string) error {
	name := table
	if what == "field" {
		name = field
	}
	if !identRe.MatchString(name) {
		return &ValidationError{
			Code:    ErrCodeInvalidName,
			Table:   table,
			Field:   field,
			Message: fmt.Sprintf("%s name %q must match %s", what, name, identRe.String()),
		}
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "sqlite_") || strings.HasPrefix(lower, "_recstore") {
		return &ValidationError{
			Code:    ErrCodeReservedName,
			Table:   table,
			Field:   field,
			Message: fmt.Sprintf("%s name %q uses a reserved prefix", what, name),
		}
	}
	return nil
}

// Name returns the table name.
func (s Schema) Name() string { return s.name }

// Fields returns a copy of the declared fields in declaration order.
func (s Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// FieldNames returns the declared field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a declared field by exact name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// IsZero reports whether s was never built by New.
func (s Schema) IsZero() bool {
	return s.name == ""
}

// Descriptor returns the schema as a plain value, the form stored in the
// catalog and hashed for version tracking.
func (s Schema) Descriptor() ir.Object {
	fields := make(ir.Array, len(s.fields))
	for i, f := range s.fields {
		fields[i] = ir.Object{
			"name":   ir.String(f.Name),
			"type":   ir.String(f.Type.String()),
			"unique": ir.Bool(f.Unique),
		}
	}
	return ir.Object{
		"name":   ir.String(s.name),
		"fields": fields,
	}
}

// FromDescriptor rebuilds a Schema from Descriptor output.
func FromDescriptor(d ir.Object) (Schema, error) {
	name, ok := d["name"].(ir.String)
	if !ok {
		return Schema{}, fmt.Errorf("schema descriptor: missing name")
	}
	rawFields, ok := d["fields"].(ir.Array)
	if !ok {
		return Schema{}, fmt.Errorf("schema descriptor %s: missing fields", name)
	}

	fields := make([]Field, 0, len(rawFields))
	for i, raw := range rawFields {
		obj, ok := raw.(ir.Object)
		if !ok {
			return Schema{}, fmt.Errorf("schema descriptor %s: field %d is %s", name, i, ir.KindOf(raw))
		}
		fname, _ := obj["name"].(ir.String)
		ftype, _ := obj["type"].(ir.String)
		unique, _ := obj["unique"].(ir.Bool)
		typ, err := ParseFieldType(string(ftype))
		if err != nil {
			return Schema{}, fmt.Errorf("schema descriptor %s.%s: %w", name, fname, err)
		}
		fields = append(fields, Field{Name: string(fname), Type: typ, Unique: bool(unique)})
	}
	return New(string(name), fields...)
}

// Hash returns the content hash of the descriptor. Field order is significant.
func (s Schema) Hash() (string, error) {
	return ir.ContentHash(ir.DomainSchema, s.Descriptor())
}

// Accepts reports whether a value kind is storable in a field of type t.
// Null is accepted for every type and means "absent".
func (t FieldType) Accepts(v ir.Value) bool {
	if ir.IsNull(v) {
		return true
	}
	switch v.(type) {
	case ir.String:
		return t == TypeString
	case ir.Number:
		return t == TypeNumber
	case ir.Bool:
		return t == TypeBoolean
	case ir.BigInt:
		return t == TypeBigInt
	case ir.Bytes:
		return t == TypeBinary
	case ir.Object, ir.Array:
		return t == TypeObject
	}
	return false
}

// CheckValue validates that v may be stored in (or compared against) field.
// The identifier field accepts integral numbers only.
func (s Schema) CheckValue(field string, v ir.Value) error {
	if field == IDField {
		n, ok := v.(ir.Number)
		if !ok || math.Trunc(float64(n)) != float64(n) {
			return &ValidationError{
				Code:    ErrCodeTypeMismatch,
				Table:   s.name,
				Field:   field,
				Message: fmt.Sprintf("identifier must be an integral number, got %s", ir.KindOf(v)),
			}
		}
		return nil
	}

	f, ok := s.Field(field)
	if !ok {
		return s.unknownField(field)
	}
	if !f.Type.Accepts(v) {
		return &ValidationError{
			Code:    ErrCodeTypeMismatch,
			Table:   s.name,
			Field:   field,
			Message: fmt.Sprintf("field is %s, got %s", f.Type, ir.KindOf(v)),
		}
	}
	if n, ok := v.(ir.Number); ok && (math.IsNaN(float64(n)) || math.IsInf(float64(n), 0)) {
		return &ValidationError{
			Code:    ErrCodeTypeMismatch,
			Table:   s.name,
			Field:   field,
			Message: "non-finite numbers cannot be stored",
		}
	}
	return nil
}

// CheckRecord validates every field of rec. The identifier may not be set.
func (s Schema) CheckRecord(rec ir.Object) error {
	for _, k := range rec.SortedKeys() {
		if k == IDField {
			return &ValidationError{
				Code:    ErrCodeReservedName,
				Table:   s.name,
				Field:   k,
				Message: "the identifier is assigned by the storage engine",
			}
		}
		if err := s.CheckValue(k, rec[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s Schema) unknownField(field string) error {
	return &ValidationError{
		Code:    ErrCodeUnknownField,
		Table:   s.name,
		Field:   field,
		Message: "field is not declared in the schema",
	}
}

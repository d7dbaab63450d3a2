package compiler

import (
	stderrors "errors"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/recstore/internal/schema"
)

// attrKey is the CUE attribute carrying per-field flags, e.g. @field(unique,bigint).
const attrKey = "field"

// CompileTables compiles every table under the top-level `table` struct.
// Tables are returned in declaration order. A missing `table` struct yields
// an empty slice.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: users: { email: string @field(unique) }`)
//	schemas, err := CompileTables(v)
func CompileTables(v cue.Value) ([]schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return []schema.Schema{}, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var schemas []schema.Schema
	for iter.Next() {
		s, err := CompileTable(iter.Value())
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	if schemas == nil {
		schemas = []schema.Schema{}
	}
	return schemas, nil
}

// CompileTable parses a CUE struct into a Schema. The table name is the
// struct's label, e.g. the value at path `table.users` compiles to "users".
func CompileTable(v cue.Value) (schema.Schema, error) {
	if err := v.Err(); err != nil {
		return schema.Schema{}, formatCUEError(err)
	}

	var name string
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	if v.IncompleteKind() != cue.StructKind {
		return schema.Schema{}, &CompileError{
			Field:   "table." + name,
			Message: "table must be a struct of field declarations",
			Pos:     v.Pos(),
		}
	}

	// Record fields are optional at runtime, so `age?: number` and
	// `age: number` declare the same thing.
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return schema.Schema{}, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		f, err := compileField(name, iter.Label(), iter.Value())
		if err != nil {
			return schema.Schema{}, err
		}
		fields = append(fields, f)
	}

	s, err := schema.New(name, fields...)
	if err != nil {
		var verr *schema.ValidationError
		if stderrors.As(err, &verr) {
			path := "table." + name
			if verr.Field != "" {
				path += "." + verr.Field
			}
			return schema.Schema{}, &CompileError{Field: path, Message: verr.Message, Pos: v.Pos()}
		}
		return schema.Schema{}, err
	}
	return s, nil
}

// compileField maps one CUE field to a schema.Field.
func compileField(table, name string, v cue.Value) (schema.Field, error) {
	path := fmt.Sprintf("table.%s.%s", table, name)

	unique, bigint, err := fieldFlags(path, v)
	if err != nil {
		return schema.Field{}, err
	}

	typ, err := extractFieldType(path, v)
	if err != nil {
		return schema.Field{}, err
	}

	if bigint {
		switch typ {
		case schema.TypeNumber, schema.TypeString:
			typ = schema.TypeBigInt
		default:
			return schema.Field{}, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("@%s(bigint) requires an int, number, or string field, got %s", attrKey, typ),
				Pos:     v.Pos(),
			}
		}
	}

	return schema.Field{Name: name, Type: typ, Unique: unique}, nil
}

// extractFieldType converts a CUE kind to a field type.
// A `null |` disjunct is ignored: every field may be absent.
func extractFieldType(path string, v cue.Value) (schema.FieldType, error) {
	kind := v.IncompleteKind() &^ cue.NullKind
	switch kind {
	case cue.StringKind:
		return schema.TypeString, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		return schema.TypeNumber, nil
	case cue.BoolKind:
		return schema.TypeBoolean, nil
	case cue.StructKind, cue.ListKind:
		return schema.TypeObject, nil
	case cue.BytesKind:
		return schema.TypeBinary, nil
	default:
		return 0, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported type kind: %v", kind),
			Pos:     v.Pos(),
		}
	}
}

// fieldFlags reads @field(...) flags. Unknown flags are errors so typos do
// not silently drop a unique index.
func fieldFlags(path string, v cue.Value) (unique, bigint bool, err error) {
	attr := v.Attribute(attrKey)
	if attr.Err() != nil {
		return false, false, nil
	}

	for i := 0; i < attr.NumArgs(); i++ {
		key, _ := attr.Arg(i)
		switch key {
		case "unique":
			unique = true
		case "bigint":
			bigint = true
		case "":
		default:
			return false, false, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("unknown @%s flag %q", attrKey, key),
				Pos:     v.Pos(),
			}
		}
	}
	return unique, bigint, nil
}

package schema

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/recstore/internal/ir"
)

// Coerce converts a loosely typed input (decoded JSON or YAML) into the
// value kind the field declares, then validates it.
//
// Conversions beyond FromAny:
//   - bigint fields accept integral numbers and decimal strings
//   - binary fields accept base64 strings
func (s Schema) Coerce(field string, raw any) (ir.Value, error) {
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, &ValidationError{Code: ErrCodeTypeMismatch, Table: s.name, Field: field, Message: err.Error()}
	}
	if ir.IsNull(v) {
		return ir.Null{}, s.checkKnown(field)
	}

	typ := TypeNumber
	if field != IDField {
		f, ok := s.Field(field)
		if !ok {
			return nil, s.unknownField(field)
		}
		typ = f.Type
	}

	switch typ {
	case TypeBigInt:
		switch val := v.(type) {
		case ir.Number:
			if math.Trunc(float64(val)) == float64(val) {
				v = ir.BigIntFromInt64(int64(val))
			}
		case ir.String:
			if parsed, err := ir.ParseBigInt(string(val)); err == nil {
				v = parsed
			}
		}
	case TypeBinary:
		if str, ok := v.(ir.String); ok {
			decoded, err := base64.StdEncoding.DecodeString(string(str))
			if err != nil {
				return nil, &ValidationError{
					Code:    ErrCodeTypeMismatch,
					Table:   s.name,
					Field:   field,
					Message: fmt.Sprintf("binary field expects base64: %v", err),
				}
			}
			v = ir.Bytes(decoded)
		}
	}

	if err := s.CheckValue(field, v); err != nil {
		return nil, err
	}
	return v, nil
}

// CoerceRecord applies Coerce to every key of raw.
func (s Schema) CoerceRecord(raw map[string]any) (ir.Object, error) {
	rec := make(ir.Object, len(raw))
	for k, val := range raw {
		if k == IDField {
			return nil, &ValidationError{
				Code:    ErrCodeReservedName,
				Table:   s.name,
				Field:   k,
				Message: "the identifier is assigned by the storage engine",
			}
		}
		v, err := s.Coerce(k, val)
		if err != nil {
			return nil, err
		}
		rec[k] = v
	}
	return rec, nil
}

// ParseValue parses the text form of a value for field, as typed on a
// command line. Object fields take JSON; binary fields take base64.
func (s Schema) ParseValue(field, text string) (ir.Value, error) {
	typ := TypeNumber
	if field != IDField {
		f, ok := s.Field(field)
		if !ok {
			return nil, s.unknownField(field)
		}
		typ = f.Type
	}

	mismatch := func(err error) error {
		return &ValidationError{
			Code:    ErrCodeTypeMismatch,
			Table:   s.name,
			Field:   field,
			Message: fmt.Sprintf("cannot parse %q as %s: %v", text, typ, err),
		}
	}

	var v ir.Value
	switch typ {
	case TypeString:
		v = ir.String(text)
	case TypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, mismatch(err)
		}
		v = ir.Number(n)
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return nil, mismatch(err)
		}
		v = ir.Bool(b)
	case TypeBigInt:
		b, err := ir.ParseBigInt(text)
		if err != nil {
			return nil, mismatch(err)
		}
		v = b
	case TypeObject:
		parsed, err := ir.UnmarshalValue([]byte(text))
		if err != nil {
			return nil, mismatch(err)
		}
		v = parsed
	case TypeBinary:
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, mismatch(err)
		}
		v = ir.Bytes(decoded)
	}

	if err := s.CheckValue(field, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s Schema) checkKnown(field string) error {
	if field == IDField {
		return nil
	}
	if _, ok := s.Field(field); !ok {
		return s.unknownField(field)
	}
	return nil
}

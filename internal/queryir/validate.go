package queryir

import (
	"fmt"

	"github.com/roach88/recstore/internal/schema"
)

// Validate checks that q targets s's table and that every field and value
// conforms to s. Errors are *schema.ValidationError where a field or value
// is at fault.
//
// Validate is a pure function with no side effects.
func Validate(q Query, s schema.Schema) error {
	switch query := q.(type) {
	case Select:
		if err := checkTable(query.From, s); err != nil {
			return err
		}
		return validatePredicate(query.Filter, s)
	case *Select:
		return Validate(*query, s)
	case Insert:
		if err := checkTable(query.Into, s); err != nil {
			return err
		}
		return s.CheckRecord(query.Record)
	case *Insert:
		return Validate(*query, s)
	case Update:
		if err := checkTable(query.Table, s); err != nil {
			return err
		}
		if err := s.CheckRecord(query.Set); err != nil {
			return err
		}
		return validatePredicate(query.Filter, s)
	case *Update:
		return Validate(*query, s)
	case Delete:
		if err := checkTable(query.From, s); err != nil {
			return err
		}
		return validatePredicate(query.Filter, s)
	case *Delete:
		return Validate(*query, s)
	case nil:
		return fmt.Errorf("nil query")
	default:
		return fmt.Errorf("unsupported query type: %T", q)
	}
}

func checkTable(name string, s schema.Schema) error {
	if name != s.Name() {
		return fmt.Errorf("query targets table %q, schema is %q", name, s.Name())
	}
	return nil
}

func validatePredicate(p Predicate, s schema.Schema) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return s.CheckValue(pred.Field, pred.Value)
	case *Equals:
		return validatePredicate(*pred, s)
	case And:
		for i, sub := range pred.Predicates {
			if err := validatePredicate(sub, s); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
		return nil
	case *And:
		return validatePredicate(*pred, s)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

package queryir

import "github.com/roach88/recstore/internal/ir"

// Query is a sealed interface over the query node types.
type Query interface {
	queryNode()
}

// Predicate is a sealed interface over filter conditions.
type Predicate interface {
	predicateNode()
}

// Select reads records.
//
//	SELECT id, <schema fields> FROM <from> [WHERE <filter>] ORDER BY id [LIMIT n]
//
// A nil Filter selects every record. Limit <= 0 means no limit.
// Results are always ordered by ascending identifier.
type Select struct {
	From   string
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Insert adds one record. Null values are omitted; the identifier is
// assigned by the engine.
type Insert struct {
	Into   string
	Record ir.Object
}

func (Insert) queryNode() {}

// Update overwrites the fields present in Set on every record matching Filter.
// A Null value in Set clears the field.
type Update struct {
	Table  string
	Set    ir.Object
	Filter Predicate
}

func (Update) queryNode() {}

// Delete removes every record matching Filter. A nil Filter clears the table.
type Delete struct {
	From   string
	Filter Predicate
}

func (Delete) queryNode() {}

// Equals matches records whose Field equals Value.
// Field may be the identifier "id". Value ir.Null matches absent fields.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// And is a conjunction. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FieldEquals is shorthand for an Equals predicate.
func FieldEquals(field string, value ir.Value) Equals {
	return Equals{Field: field, Value: value}
}

// ByID matches a single record identifier.
func ByID(id int64) Equals {
	return Equals{Field: "id", Value: ir.Number(id)}
}

package recordstore

import (
	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/store"
)

// Record is one stored record: its engine-assigned identifier and the
// fields that are present. Absent fields are not in Fields.
type Record struct {
	ID     int64
	Fields ir.Object
}

// Get returns the value of field, or ir.Null{} when absent.
// The identifier is readable as the "id" field.
func (r Record) Get(field string) ir.Value {
	if field == schema.IDField {
		return ir.Number(float64(r.ID))
	}
	if v, ok := r.Fields[field]; ok {
		return v
	}
	return ir.Null{}
}

// Object returns the fields plus the identifier under "id".
func (r Record) Object() ir.Object {
	obj := r.Fields.Clone()
	obj[schema.IDField] = ir.Number(float64(r.ID))
	return obj
}

// MarshalJSON renders the record as one flat object with an "id" key.
func (r Record) MarshalJSON() ([]byte, error) {
	return r.Object().MarshalJSON()
}

func recordsFromRows(rows []store.Row) []Record {
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{ID: row.ID, Fields: row.Fields}
	}
	return records
}

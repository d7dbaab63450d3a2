package store

import "fmt"

// SchemaConflictError reports a declaration that cannot be applied to the
// existing table without rewriting stored data.
type SchemaConflictError struct {
	Table    string
	Field    string
	Existing string // catalogued field type, or column type when uncatalogued
	Declared string // type the new declaration needs
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("table %q field %q: declared as %s but stored as %s",
		e.Table, e.Field, e.Declared, e.Existing)
}

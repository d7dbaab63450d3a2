package querysql

import (
	"fmt"

	"github.com/roach88/recstore/internal/schema"
)

// ColumnType returns the SQLite column type for a field type.
func ColumnType(t schema.FieldType) string {
	switch t {
	case schema.TypeNumber:
		return "REAL"
	case schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeBinary:
		return "BLOB"
	default:
		// string, bigint (base-10), object (canonical JSON)
		return "TEXT"
	}
}

// IndexName names the per-field index. Unique and plain indexes use
// different prefixes so flipping the flag can swap one for the other.
func IndexName(table, field string, unique bool) string {
	if unique {
		return fmt.Sprintf("uq_%s_%s", table, field)
	}
	return fmt.Sprintf("idx_%s_%s", table, field)
}

// CreateTable returns the idempotent table declaration for s.
func CreateTable(s schema.Schema) string {
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY AUTOINCREMENT",
		Quote(s.Name()), Quote(schema.IDField))
	for _, f := range s.Fields() {
		sql += fmt.Sprintf(", %s %s", Quote(f.Name), ColumnType(f.Type))
	}
	return sql + ")"
}

// CreateIndex returns the idempotent index declaration for one field.
func CreateIndex(table string, f schema.Field) string {
	kind := "INDEX"
	if f.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
		kind, Quote(IndexName(table, f.Name, f.Unique)), Quote(table), Quote(f.Name))
}

// DropIndex drops the index of the given uniqueness for a field, if present.
func DropIndex(table, field string, unique bool) string {
	return "DROP INDEX IF EXISTS " + Quote(IndexName(table, field, unique))
}

// AddColumn returns the migration statement adding f to an existing table.
func AddColumn(table string, f schema.Field) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", Quote(table), Quote(f.Name), ColumnType(f.Type))
}

// Declare returns every statement needed to create s from scratch:
// the table, then one index per field in declaration order.
func Declare(s schema.Schema) []string {
	stmts := []string{CreateTable(s)}
	for _, f := range s.Fields() {
		stmts = append(stmts, CreateIndex(s.Name(), f))
	}
	return stmts
}

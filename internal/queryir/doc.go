// Package queryir provides the abstract query representation for record
// store operations.
//
// The IR sits between the record store and the storage backend:
//
//	[recordstore op] -> [Query IR] -> [querysql] -> SQLite
//
// Every RecordStore operation maps to exactly one node:
//
//	GetByField / GetAll     -> Select
//	Add                     -> Insert
//	Update (first match)    -> Select{Limit: 1} then Update{Filter: id}
//	DeleteByField / Delete  -> Delete
//
// Predicates are limited to field equality (Equals) and conjunction (And).
// Equality with ir.Null matches absent fields. Values are ir.Value and are
// validated against the table schema by Validate before compilation.
package queryir

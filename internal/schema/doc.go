// Package schema defines table schemas as plain data.
//
// A Schema is a table name plus an ordered list of fields, each carrying a
// FieldType from a closed enumeration. Schemas are immutable once built by
// New; every accessor returns copies.
//
// The identifier column "id" is reserved: it is assigned by the storage
// engine, can be queried, and is never a declared field.
package schema

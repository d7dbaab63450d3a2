package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/querysql"
	"github.com/roach88/recstore/internal/schema"
)

// Declaration describes a table as recorded in the catalog.
type Declaration struct {
	Table   string
	Version int
	Hash    string
	Schema  schema.Schema

	// Set by Declare only: whether this call created or migrated the table.
	Created  bool
	Migrated bool
}

// Declare creates or migrates the table described by s.
//
// A new table is recorded at version 1. Re-declaring the same schema
// (by content hash) changes nothing. A different schema is applied
// additively inside one transaction and bumps the version.
func (s *Store) Declare(ctx context.Context, sch schema.Schema) (Declaration, error) {
	if sch.IsZero() {
		return Declaration{}, fmt.Errorf("cannot declare zero schema")
	}
	hash, err := sch.Hash()
	if err != nil {
		return Declaration{}, fmt.Errorf("hash schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Declaration{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	decl := Declaration{Table: sch.Name(), Hash: hash, Schema: sch}

	prev, err := lookupDeclaration(ctx, tx, sch.Name())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stmts, err := planDeclare(ctx, tx, nil, sch)
		if err != nil {
			return Declaration{}, err
		}
		if err := execAll(ctx, tx, stmts); err != nil {
			return Declaration{}, err
		}
		decl.Version = 1
		decl.Created = true
	case err != nil:
		return Declaration{}, err
	case prev.Hash == hash:
		decl.Version = prev.Version
		return decl, nil
	default:
		stmts, err := planDeclare(ctx, tx, &prev.Schema, sch)
		if err != nil {
			return Declaration{}, err
		}
		if err := execAll(ctx, tx, stmts); err != nil {
			return Declaration{}, err
		}
		decl.Version = prev.Version + 1
		decl.Migrated = true
	}

	descriptor, err := ir.MarshalCanonical(sch.Descriptor())
	if err != nil {
		return Declaration{}, fmt.Errorf("marshal schema: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO _recstore_tables (name, version, schema_hash, schema)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			schema_hash = excluded.schema_hash,
			schema = excluded.schema
	`, decl.Table, decl.Version, decl.Hash, string(descriptor))
	if err != nil {
		return Declaration{}, fmt.Errorf("record declaration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Declaration{}, fmt.Errorf("commit declaration: %w", err)
	}

	s.logger.Debug("table declared",
		"table", decl.Table,
		"version", decl.Version,
		"created", decl.Created,
		"migrated", decl.Migrated)
	return decl, nil
}

// Tables lists every catalogued declaration ordered by table name.
func (s *Store) Tables(ctx context.Context) ([]Declaration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version, schema_hash, schema
		FROM _recstore_tables
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var decls []Declaration
	for rows.Next() {
		decl, err := scanDeclaration(rows)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return decls, nil
}

// Table returns the catalogued declaration for name.
// Returns sql.ErrNoRows (wrapped) if the table was never declared.
func (s *Store) Table(ctx context.Context, name string) (Declaration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, version, schema_hash, schema
		FROM _recstore_tables
		WHERE name = ?
	`, name)
	decl, err := scanDeclaration(row)
	if err != nil {
		return Declaration{}, fmt.Errorf("table %q: %w", name, err)
	}
	return decl, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeclaration(row scanner) (Declaration, error) {
	var decl Declaration
	var descriptor string
	if err := row.Scan(&decl.Table, &decl.Version, &decl.Hash, &descriptor); err != nil {
		return Declaration{}, err
	}
	v, err := ir.UnmarshalValue([]byte(descriptor))
	if err != nil {
		return Declaration{}, fmt.Errorf("decode schema of %q: %w", decl.Table, err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return Declaration{}, fmt.Errorf("decode schema of %q: descriptor is %s", decl.Table, ir.KindOf(v))
	}
	sch, err := schema.FromDescriptor(obj)
	if err != nil {
		return Declaration{}, fmt.Errorf("decode schema of %q: %w", decl.Table, err)
	}
	decl.Schema = sch
	return decl, nil
}

func lookupDeclaration(ctx context.Context, tx *sql.Tx, name string) (Declaration, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT name, version, schema_hash, schema
		FROM _recstore_tables
		WHERE name = ?
	`, name)
	return scanDeclaration(row)
}

// existingColumns maps lower-cased column names to their declared types.
// An empty map means the table does not exist.
func existingColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %q: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("inspect table %q: %w", table, err)
		}
		cols[strings.ToLower(name)] = strings.ToUpper(typ)
	}
	return cols, rows.Err()
}

// planDeclare computes the statements that bring the stored table in line
// with next. prev is the catalogued schema, nil when uncatalogued.
//
// The live column list is consulted rather than prev alone, so a table
// created outside the catalog, or a field that was dropped and re-added,
// is handled without duplicate-column failures.
func planDeclare(ctx context.Context, tx *sql.Tx, prev *schema.Schema, next schema.Schema) ([]string, error) {
	cols, err := existingColumns(ctx, tx, next.Name())
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return querysql.Declare(next), nil
	}

	var stmts []string
	for _, f := range next.Fields() {
		// Several field types share a column type, so catalogued fields
		// compare declared types.
		if prev != nil {
			if old, ok := prev.Field(f.Name); ok && old.Type != f.Type {
				return nil, &SchemaConflictError{
					Table:    next.Name(),
					Field:    f.Name,
					Existing: old.Type.String(),
					Declared: f.Type.String(),
				}
			}
		}

		want := querysql.ColumnType(f.Type)
		have, ok := cols[strings.ToLower(f.Name)]
		switch {
		case !ok:
			stmts = append(stmts, querysql.AddColumn(next.Name(), f))
		case have != want:
			return nil, &SchemaConflictError{
				Table:    next.Name(),
				Field:    f.Name,
				Existing: have,
				Declared: want,
			}
		}

		if prev != nil {
			if old, ok := prev.Field(f.Name); ok && old.Unique == f.Unique {
				continue
			}
		}
		stmts = append(stmts,
			querysql.DropIndex(next.Name(), f.Name, !f.Unique),
			querysql.CreateIndex(next.Name(), f))
	}
	return stmts, nil
}

func execAll(ctx context.Context, tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/queryir"
	"github.com/roach88/recstore/internal/querysql"
	"github.com/roach88/recstore/internal/schema"
)

// Row is one stored record. Fields holds only the non-null columns.
type Row struct {
	ID     int64
	Fields ir.Object
}

// Insert stores rec and returns the identifier assigned to it.
func (s *Store) Insert(ctx context.Context, sch schema.Schema, rec ir.Object) (int64, error) {
	return insertRow(ctx, s.db, sch, rec)
}

// InsertAll stores recs in one transaction and returns their identifiers
// in order. If any insert fails nothing is stored; the error names the
// index of the failing record.
func (s *Store) InsertAll(ctx context.Context, sch schema.Schema, recs []ir.Object) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	ids := make([]int64, 0, len(recs))
	for i, rec := range recs {
		id, err := insertRow(ctx, tx, sch, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return ids, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, ex execer, sch schema.Schema, rec ir.Object) (int64, error) {
	query, params, err := querysql.NewSQLCompiler(sch).Compile(queryir.Insert{
		Into:   sch.Name(),
		Record: rec,
	})
	if err != nil {
		return 0, err
	}

	res, err := ex.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("insert into %q: %w", sch.Name(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %q: last insert id: %w", sch.Name(), err)
	}
	return id, nil
}

// Find returns the rows matching filter in identifier order.
// A nil filter matches every row; limit <= 0 means no limit.
// Returns an empty, non-nil slice when nothing matches.
func (s *Store) Find(ctx context.Context, sch schema.Schema, filter queryir.Predicate, limit int) ([]Row, error) {
	return findRows(ctx, s.db, sch, filter, limit)
}

// Delete removes the rows matching filter and returns how many were removed.
// A nil filter removes every row.
func (s *Store) Delete(ctx context.Context, sch schema.Schema, filter queryir.Predicate) (int64, error) {
	query, params, err := querysql.NewSQLCompiler(sch).Compile(queryir.Delete{
		From:   sch.Name(),
		Filter: filter,
	})
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("delete from %q: %w", sch.Name(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %q: rows affected: %w", sch.Name(), err)
	}
	return n, nil
}

// UpdateFirst applies patch to the first row (lowest identifier) matching
// filter. Null values in patch clear the field.
//
// Returns (id, true, nil) when a row was updated and (0, false, nil) when
// nothing matched. Selection and write happen in one transaction.
func (s *Store) UpdateFirst(ctx context.Context, sch schema.Schema, filter queryir.Predicate, patch ir.Object) (int64, bool, error) {
	compiler := querysql.NewSQLCompiler(sch)

	// Validate the patch before touching the database so a bad patch
	// fails the same way whether or not anything matches.
	if err := sch.CheckRecord(patch); err != nil {
		return 0, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	rows, err := findRows(ctx, tx, sch, filter, 1)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	id := rows[0].ID

	if len(patch) > 0 {
		query, params, err := compiler.Compile(queryir.Update{
			Table:  sch.Name(),
			Set:    patch,
			Filter: queryir.ByID(id),
		})
		if err != nil {
			return 0, false, err
		}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return 0, false, fmt.Errorf("update %q: %w", sch.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit update: %w", err)
	}
	return id, true, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func findRows(ctx context.Context, q querier, sch schema.Schema, filter queryir.Predicate, limit int) ([]Row, error) {
	compiler := querysql.NewSQLCompiler(sch)
	query, params, err := compiler.Compile(queryir.Select{
		From:   sch.Name(),
		Filter: filter,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", sch.Name(), err)
	}
	defer rows.Close()

	fields := sch.Fields()
	result := []Row{}
	for rows.Next() {
		raw := make([]any, len(fields)+1)
		dest := make([]any, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %q: %w", sch.Name(), err)
		}

		row, err := decodeRow(fields, raw)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", sch.Name(), err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", sch.Name(), err)
	}
	return result, nil
}

// decodeRow converts one scanned row. raw[0] is the identifier and
// raw[i+1] is fields[i], matching SQLCompiler.Columns.
func decodeRow(fields []schema.Field, raw []any) (Row, error) {
	id, err := decodeID(raw[0])
	if err != nil {
		return Row{}, err
	}

	obj := make(ir.Object, len(fields))
	for i, f := range fields {
		v, err := decodeColumn(f.Type, raw[i+1])
		if err != nil {
			return Row{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if ir.IsNull(v) {
			continue
		}
		obj[f.Name] = v
	}
	return Row{ID: id, Fields: obj}, nil
}

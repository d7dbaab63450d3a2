package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/queryir"
	"github.com/roach88/recstore/internal/schema"
)

// SQLCompiler compiles queryir nodes for one table to parameterized SQLite SQL.
//
// All values are parameterized, never interpolated. Identifiers are quoted.
// Every Select orders by the identifier so iteration order is stable.
type SQLCompiler struct {
	schema schema.Schema
}

// NewSQLCompiler creates a compiler bound to s.
func NewSQLCompiler(s schema.Schema) *SQLCompiler {
	return &SQLCompiler{schema: s}
}

// Compile validates q against the schema and converts it to SQL.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q, c.schema); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Insert:
		return c.compileInsert(query)
	case *queryir.Insert:
		return c.compileInsert(*query)
	case queryir.Update:
		return c.compileUpdate(query)
	case *queryir.Update:
		return c.compileUpdate(*query)
	case queryir.Delete:
		return c.compileDelete(query)
	case *queryir.Delete:
		return c.compileDelete(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// Columns returns the selected column list: the identifier, then every
// schema field in declaration order.
func (c *SQLCompiler) Columns() []string {
	return append([]string{schema.IDField}, c.schema.FieldNames()...)
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	cols := c.Columns()
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = Quote(col)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(quoted, ", "), Quote(q.From))

	params, err := c.writeWhere(&sb, q.Filter)
	if err != nil {
		return "", nil, err
	}

	sb.WriteString(" ORDER BY " + stableOrderKey())
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), params, nil
}

func (c *SQLCompiler) compileInsert(q queryir.Insert) (string, []any, error) {
	var cols []string
	var params []any
	for _, name := range c.schema.FieldNames() {
		v, ok := q.Record[name]
		if !ok || ir.IsNull(v) {
			continue
		}
		arg, err := Arg(v)
		if err != nil {
			return "", nil, fmt.Errorf("insert %s.%s: %w", q.Into, name, err)
		}
		cols = append(cols, Quote(name))
		params = append(params, arg)
	}

	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", Quote(q.Into)), nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Quote(q.Into), strings.Join(cols, ", "), placeholders)
	return sql, params, nil
}

func (c *SQLCompiler) compileUpdate(q queryir.Update) (string, []any, error) {
	var sets []string
	var params []any
	for _, name := range c.schema.FieldNames() {
		v, ok := q.Set[name]
		if !ok {
			continue
		}
		arg, err := Arg(v)
		if err != nil {
			return "", nil, fmt.Errorf("update %s.%s: %w", q.Table, name, err)
		}
		sets = append(sets, Quote(name)+" = ?")
		params = append(params, arg)
	}
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("update %s: no fields to set", q.Table)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", Quote(q.Table), strings.Join(sets, ", "))
	whereParams, err := c.writeWhere(&sb, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), append(params, whereParams...), nil
}

func (c *SQLCompiler) compileDelete(q queryir.Delete) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM " + Quote(q.From))
	params, err := c.writeWhere(&sb, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), params, nil
}

func (c *SQLCompiler) writeWhere(sb *strings.Builder, p queryir.Predicate) ([]any, error) {
	if p == nil {
		return nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	sb.WriteString(" WHERE " + sql)
	return params, nil
}

// stableOrderKey is the ORDER BY clause shared by every Select.
func stableOrderKey() string {
	return Quote(schema.IDField) + " ASC"
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(p queryir.Equals) (string, []any, error) {
	if ir.IsNull(p.Value) {
		return Quote(p.Field) + " IS NULL", nil, nil
	}

	// Identifiers are INTEGER; bind them as int64 rather than REAL.
	if p.Field == schema.IDField {
		if n, ok := p.Value.(ir.Number); ok {
			return Quote(p.Field) + " = ?", []any{int64(n)}, nil
		}
	}

	arg, err := Arg(p.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", p.Field, err)
	}
	return Quote(p.Field) + " = ?", []any{arg}, nil
}

func (c *SQLCompiler) compileAnd(p queryir.And) (string, []any, error) {
	if len(p.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(p.Predicates))
	var params []any
	for i, sub := range p.Predicates {
		sql, subParams, err := c.compilePredicate(sub)
		if err != nil {
			return "", nil, fmt.Errorf("and[%d]: %w", i, err)
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}

	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

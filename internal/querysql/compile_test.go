package querysql

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/queryir"
	"github.com/roach88/recstore/internal/schema"
)

var users = schema.MustNew("users",
	schema.Field{Name: "email", Type: schema.TypeString, Unique: true},
	schema.F("age", schema.TypeNumber),
	schema.F("admin", schema.TypeBoolean),
	schema.F("prefs", schema.TypeObject),
	schema.F("balance", schema.TypeBigInt),
	schema.F("avatar", schema.TypeBinary),
)

const selectCols = `SELECT "id", "email", "age", "admin", "prefs", "balance", "avatar" FROM "users"`

func TestCompileSelectAll(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Select{From: "users"})
	require.NoError(t, err)
	assert.Equal(t, selectCols+` ORDER BY "id" ASC`, sql)
	assert.Empty(t, params)
}

func TestCompileSelectEquals(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Select{
		From:   "users",
		Filter: queryir.FieldEquals("email", ir.String("a@b")),
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, selectCols+` WHERE "email" = ? ORDER BY "id" ASC LIMIT 1`, sql)
	assert.Equal(t, []any{"a@b"}, params)
}

func TestCompileSelectNullMatchesAbsent(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(&queryir.Select{From: "users", Filter: queryir.FieldEquals("age", ir.Null{})})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, `WHERE "age" IS NULL ORDER BY "id" ASC`), sql)
	assert.Empty(t, params)
}

func TestCompileSelectByIDBindsInteger(t *testing.T) {
	c := NewSQLCompiler(users)

	_, params, err := c.Compile(queryir.Select{From: "users", Filter: queryir.ByID(7)})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7)}, params)
}

func TestCompileAnd(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Delete{From: "users", Filter: queryir.And{Predicates: []queryir.Predicate{
		queryir.FieldEquals("admin", ir.Bool(true)),
		queryir.FieldEquals("age", ir.Number(30)),
	}}})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE ("admin" = ? AND "age" = ?)`, sql)
	assert.Equal(t, []any{int64(1), float64(30)}, params)

	sql, _, err = c.Compile(queryir.Delete{From: "users", Filter: queryir.And{}})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE 1 = 1`, sql)
}

func TestCompileDeleteAll(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Delete{From: "users"})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users"`, sql)
	assert.Nil(t, params)
}

func TestCompileInsert(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Insert{Into: "users", Record: ir.Object{
		"age":     ir.Number(30),
		"email":   ir.String("a@b"),
		"prefs":   ir.Object{"z": ir.Number(1), "a": ir.String("x")},
		"balance": ir.BigIntFromInt64(5),
		"admin":   ir.Null{},
	}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("email", "age", "prefs", "balance") VALUES (?, ?, ?, ?)`, sql)
	assert.Equal(t, []any{"a@b", float64(30), `{"a":"x","z":1}`, "5"}, params)
}

func TestCompileInsertEmpty(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Insert{Into: "users", Record: ir.Object{}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" DEFAULT VALUES`, sql)
	assert.Nil(t, params)
}

func TestCompileUpdate(t *testing.T) {
	c := NewSQLCompiler(users)

	sql, params, err := c.Compile(queryir.Update{
		Table:  "users",
		Set:    ir.Object{"age": ir.Number(31), "admin": ir.Null{}},
		Filter: queryir.ByID(2),
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "age" = ?, "admin" = ? WHERE "id" = ?`, sql)
	assert.Equal(t, []any{float64(31), nil, int64(2)}, params)
}

func TestCompileUpdateEmptySet(t *testing.T) {
	c := NewSQLCompiler(users)

	_, _, err := c.Compile(queryir.Update{Table: "users", Set: ir.Object{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fields")
}

func TestCompileRejectsInvalid(t *testing.T) {
	c := NewSQLCompiler(users)

	_, _, err := c.Compile(nil)
	require.Error(t, err)

	_, _, err = c.Compile(queryir.Select{From: "users", Filter: queryir.FieldEquals("nope", ir.String("x"))})
	require.Error(t, err)

	_, _, err = c.Compile(queryir.Select{From: "other"})
	require.Error(t, err)
}

func TestArg(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Value
		want  any
	}{
		{"null", ir.Null{}, nil},
		{"string", ir.String("x"), "x"},
		{"number", ir.Number(1.5), 1.5},
		{"false", ir.Bool(false), int64(0)},
		{"bigint", ir.BigIntFromInt64(-3), "-3"},
		{"bytes", ir.Bytes{1}, []byte{1}},
		{"nil bytes", ir.Bytes(nil), []byte{}},
		{"array", ir.Array{ir.Number(1)}, "[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Arg(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"users"`, Quote("users"))
	assert.Equal(t, `"a""b"`, Quote(`a"b`))
}

func TestDeclareGolden(t *testing.T) {
	ddl := strings.Join(Declare(users), ";\n") + ";\n"

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "users_declare", []byte(ddl))
}

func TestMigrationStatements(t *testing.T) {
	f := schema.Field{Name: "nick", Type: schema.TypeString, Unique: true}

	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "nick" TEXT`, AddColumn("users", f))
	assert.Equal(t, `DROP INDEX IF EXISTS "idx_users_nick"`, DropIndex("users", "nick", false))
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "uq_users_nick" ON "users" ("nick")`, CreateIndex("users", f))
}

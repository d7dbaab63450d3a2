package store

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/queryir"
	"github.com/roach88/recstore/internal/schema"
)

func fullUser(t *testing.T) ir.Object {
	t.Helper()
	balance, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	return ir.NewObject(
		ir.P("email", ir.String("ada@example.com")),
		ir.P("age", ir.Number(36)),
		ir.P("admin", ir.Bool(true)),
		ir.P("prefs", ir.NewObject(
			ir.P("theme", ir.String("dark")),
			ir.P("tags", ir.Array{ir.String("a"), ir.Number(1.5)}),
		)),
		ir.P("balance", ir.NewBigInt(balance)),
		ir.P("avatar", ir.Bytes{0x00, 0xff, 0x10}),
	)
}

func TestInsertFind_RoundTripsEveryType(t *testing.T) {
	for _, driver := range []string{DriverSQLite3, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			s := createTestStore(t, WithDriver(driver))
			ctx := context.Background()
			sch := usersSchema(t)
			declareTestTable(t, s, sch)

			rec := fullUser(t)
			id, err := s.Insert(ctx, sch, rec)
			require.NoError(t, err)
			assert.Equal(t, int64(1), id)

			rows, err := s.Find(ctx, sch, queryir.ByID(id), 0)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, id, rows[0].ID)

			got := rows[0].Fields
			assert.Equal(t, rec["email"], got["email"])
			assert.Equal(t, rec["age"], got["age"])
			assert.Equal(t, rec["admin"], got["admin"])
			assert.Equal(t, rec["prefs"], got["prefs"])
			assert.Equal(t, rec["avatar"], got["avatar"])
			gotBalance, ok := got["balance"].(ir.BigInt)
			require.True(t, ok, "balance decoded as %T", got["balance"])
			assert.True(t, gotBalance.Equal(rec["balance"].(ir.BigInt)))
		})
	}
}

func TestInsert_AbsentFieldsStayAbsent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	id, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(3)), ir.P("admin", ir.Null{})))
	require.NoError(t, err)

	rows, err := s.Find(ctx, sch, queryir.ByID(id), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.NewObject(ir.P("age", ir.Number(3))), rows[0].Fields)
}

func TestInsert_EmptyRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	id, err := s.Insert(ctx, sch, ir.Object{})
	require.NoError(t, err)

	rows, err := s.Find(ctx, sch, nil, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Empty(t, rows[0].Fields)
}

func TestInsert_IdentifiersIncrease(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := schema.MustNew("notes", schema.F("title", schema.TypeString))
	declareTestTable(t, s, sch)

	var last int64
	for i := 0; i < 5; i++ {
		id, err := s.Insert(ctx, sch, ir.NewObject(ir.P("title", ir.String("x"))))
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}

	// AUTOINCREMENT never reuses a deleted identifier.
	_, err := s.Delete(ctx, sch, nil)
	require.NoError(t, err)
	id, err := s.Insert(ctx, sch, ir.NewObject(ir.P("title", ir.String("y"))))
	require.NoError(t, err)
	assert.Greater(t, id, last)
}

func TestInsert_UniqueViolation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	_, err := s.Insert(ctx, sch, ir.NewObject(ir.P("email", ir.String("a@b.c"))))
	require.NoError(t, err)

	_, err = s.Insert(ctx, sch, ir.NewObject(ir.P("email", ir.String("a@b.c"))))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}

func TestInsertAll_CommitsInOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	ids, err := s.InsertAll(ctx, sch, []ir.Object{
		ir.NewObject(ir.P("email", ir.String("a@b.c"))),
		ir.NewObject(ir.P("email", ir.String("d@e.f"))),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	rows, err := s.Find(ctx, sch, nil, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestInsertAll_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	_, err := s.InsertAll(ctx, sch, []ir.Object{
		ir.NewObject(ir.P("email", ir.String("a@b.c"))),
		ir.NewObject(ir.P("email", ir.String("d@e.f"))),
		ir.NewObject(ir.P("email", ir.String("a@b.c"))),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")

	rows, err := s.Find(ctx, sch, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	id, err := s.Insert(ctx, sch, ir.NewObject(ir.P("email", ir.String("a@b.c"))))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestInsert_RejectsInvalidRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	_, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.String("old"))))
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, schema.ErrCodeTypeMismatch, verr.Code)

	_, err = s.Insert(ctx, sch, ir.NewObject(ir.P("nickname", ir.String("x"))))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, schema.ErrCodeUnknownField, verr.Code)
}

func TestFind_ByFieldInIdentifierOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := schema.MustNew("pets",
		schema.F("kind", schema.TypeString),
		schema.F("name", schema.TypeString))
	declareTestTable(t, s, sch)

	for _, pet := range [][2]string{{"cat", "tom"}, {"dog", "rex"}, {"cat", "kit"}} {
		_, err := s.Insert(ctx, sch, ir.NewObject(
			ir.P("kind", ir.String(pet[0])),
			ir.P("name", ir.String(pet[1]))))
		require.NoError(t, err)
	}

	rows, err := s.Find(ctx, sch, queryir.FieldEquals("kind", ir.String("cat")), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ir.String("tom"), rows[0].Fields["name"])
	assert.Equal(t, ir.String("kit"), rows[1].Fields["name"])
	assert.Less(t, rows[0].ID, rows[1].ID)

	rows, err = s.Find(ctx, sch, queryir.FieldEquals("kind", ir.String("cat")), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.String("tom"), rows[0].Fields["name"])
}

func TestFind_NoMatchIsEmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	rows, err := s.Find(ctx, sch, queryir.FieldEquals("email", ir.String("nobody")), 0)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFind_NullMatchesAbsent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	_, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(1))))
	require.NoError(t, err)
	_, err = s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(2)), ir.P("email", ir.String("x@y.z"))))
	require.NoError(t, err)

	rows, err := s.Find(ctx, sch, queryir.FieldEquals("email", ir.Null{}), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Number(1), rows[0].Fields["age"])
}

func TestFind_ObjectEqualityIsCanonical(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	_, err := s.Insert(ctx, sch, ir.NewObject(ir.P("prefs", ir.NewObject(
		ir.P("b", ir.Number(2)),
		ir.P("a", ir.Number(1)),
	))))
	require.NoError(t, err)

	rows, err := s.Find(ctx, sch, queryir.FieldEquals("prefs", ir.NewObject(
		ir.P("a", ir.Number(1)),
		ir.P("b", ir.Number(2)),
	)), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDelete_ReturnsCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	for _, age := range []float64{1, 2, 2, 3} {
		_, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(age))))
		require.NoError(t, err)
	}

	n, err := s.Delete(ctx, sch, queryir.FieldEquals("age", ir.Number(2)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Delete(ctx, sch, queryir.FieldEquals("age", ir.Number(99)))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.Delete(ctx, sch, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := s.Find(ctx, sch, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateFirst_OnlyFirstMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	first, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(5)), ir.P("admin", ir.Bool(false))))
	require.NoError(t, err)
	second, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(5)), ir.P("admin", ir.Bool(false))))
	require.NoError(t, err)

	id, found, err := s.UpdateFirst(ctx, sch,
		queryir.FieldEquals("age", ir.Number(5)),
		ir.NewObject(ir.P("admin", ir.Bool(true))))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first, id)

	rows, err := s.Find(ctx, sch, nil, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ir.Bool(true), rows[0].Fields["admin"])
	assert.Equal(t, ir.Number(5), rows[0].Fields["age"], "unpatched fields keep their value")
	assert.Equal(t, second, rows[1].ID)
	assert.Equal(t, ir.Bool(false), rows[1].Fields["admin"])
}

func TestUpdateFirst_NullClearsField(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	id, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(5)), ir.P("email", ir.String("e@x"))))
	require.NoError(t, err)

	_, found, err := s.UpdateFirst(ctx, sch, queryir.ByID(id), ir.NewObject(ir.P("email", ir.Null{})))
	require.NoError(t, err)
	require.True(t, found)

	rows, err := s.Find(ctx, sch, queryir.ByID(id), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.NewObject(ir.P("age", ir.Number(5))), rows[0].Fields)
}

func TestUpdateFirst_NoMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	id, found, err := s.UpdateFirst(ctx, sch,
		queryir.FieldEquals("age", ir.Number(1)),
		ir.NewObject(ir.P("admin", ir.Bool(true))))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, id)
}

func TestUpdateFirst_InvalidPatchFailsWithoutMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	_, _, err := s.UpdateFirst(ctx, sch,
		queryir.FieldEquals("age", ir.Number(1)),
		ir.NewObject(ir.P("id", ir.Number(7))))
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, schema.ErrCodeReservedName, verr.Code)
}

func TestUpdateFirst_EmptyPatchStillFindsMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sch := usersSchema(t)
	declareTestTable(t, s, sch)

	want, err := s.Insert(ctx, sch, ir.NewObject(ir.P("age", ir.Number(1))))
	require.NoError(t, err)

	id, found, err := s.UpdateFirst(ctx, sch, queryir.FieldEquals("age", ir.Number(1)), ir.Object{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, id)
}

func TestRows_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()
	sch := usersSchema(t)

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Declare(ctx, sch)
	require.NoError(t, err)
	_, err = s1.Insert(ctx, sch, fullUser(t))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	rows, err := s2.Find(ctx, sch, queryir.FieldEquals("email", ir.String("ada@example.com")), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Number(36), rows[0].Fields["age"])
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/recstore/internal/schema"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// usersSchema covers every field type.
func usersSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New("users",
		schema.Field{Name: "email", Type: schema.TypeString, Unique: true},
		schema.F("age", schema.TypeNumber),
		schema.F("admin", schema.TypeBoolean),
		schema.F("prefs", schema.TypeObject),
		schema.F("balance", schema.TypeBigInt),
		schema.F("avatar", schema.TypeBinary),
	)
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}
	return s
}

// declareTestTable declares sch on s and fails the test on error.
func declareTestTable(t *testing.T, s *Store, sch schema.Schema) Declaration {
	t.Helper()
	decl, err := s.Declare(context.Background(), sch)
	if err != nil {
		t.Fatalf("Declare() failed: %v", err)
	}
	return decl
}

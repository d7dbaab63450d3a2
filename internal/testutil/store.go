package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/recstore/internal/store"
)

// OpenStore opens a store in a fresh temporary directory and closes it
// when the test ends.
func OpenStore(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()
	return OpenStoreAt(t, filepath.Join(t.TempDir(), "test.db"), opts...)
}

// OpenStoreAt opens the store at path and closes it when the test ends.
// Use it to reopen a database within one test.
func OpenStoreAt(t testing.TB, path string, opts ...store.Option) *store.Store {
	t.Helper()
	st, err := store.Open(path, opts...)
	if err != nil {
		t.Fatalf("store.Open(%q) failed: %v", path, err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

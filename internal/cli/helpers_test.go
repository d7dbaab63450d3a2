package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

const testSchemasDir = "testdata/schemas"

// runCLI executes the root command with args and captures both streams.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// dbArgs returns global flags pointing at a fresh database and the test schemas.
func dbArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--db", filepath.Join(t.TempDir(), "test.db"), "--schemas", testSchemasDir}
}

func with(base []string, args ...string) []string {
	out := make([]string, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}

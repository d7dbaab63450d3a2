package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_YAMLThenJSON(t *testing.T) {
	base := dbArgs(t)

	out, _, err := runCLI(t, with(base, "import", "users", "testdata/import/users.yaml")...)
	require.NoError(t, err)
	assert.Equal(t, "✓ imported 2 record(s) into users\n", out)

	out, _, err = runCLI(t, with(base, "--format", "json", "import", "users", "testdata/import/users.json")...)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ImportResult{Table: "users", Added: 2, IDs: []int64{3, 4}}, resp.Data)

	// Large integers survive the YAML decoder untouched.
	out, _, err = runCLI(t, with(base, "get", "users", "email", "bob@example.com")...)
	require.NoError(t, err)
	assert.Contains(t, out, "9007199254740993")

	out, _, err = runCLI(t, with(base, "get", "users", "prefs", `{"theme":"dark"}`)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
}

func TestImport_BadRecordAddsNothing(t *testing.T) {
	base := dbArgs(t)

	out, _, err := runCLI(t, with(base, "import", "users", "testdata/import/bad_type.yaml")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E202]")
	assert.Contains(t, out, "record 1")

	out, _, err = runCLI(t, with(base, "list", "users")...)
	require.NoError(t, err)
	assert.Equal(t, "(no records)\n", out)
}

func TestImport_UniqueViolationAddsNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dupes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"email":"a@x"},{"email":"b@x"},{"email":"a@x"}]`), 0644))

	base := dbArgs(t)
	out, _, err := runCLI(t, with(base, "import", "users", path)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E204]")
	assert.Contains(t, out, "record 2")

	out, _, err = runCLI(t, with(base, "list", "users")...)
	require.NoError(t, err)
	assert.Equal(t, "(no records)\n", out)

	// The rolled-back import consumed no identifiers.
	out, _, err = runCLI(t, with(base, "add", "users", "--record", `{"email":"a@x"}`)...)
	require.NoError(t, err)
	assert.Equal(t, "✓ added users record 1\n", out)
}

func TestImport_RejectedFiles(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(csv, []byte("email\na@x\n"), 0644))
	notList := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(notList, []byte(`{"email":"a@x"}`), 0644))

	tests := []struct {
		name string
		file string
		want string
	}{
		{"unsupported extension", csv, `unsupported import format ".csv"`},
		{"not a list", notList, "parse"},
		{"missing file", filepath.Join(dir, "missing.yaml"), "read import file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, with(dbArgs(t), "import", "users", tt.file)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E202]")
			assert.Contains(t, out, tt.want)
		})
	}
}

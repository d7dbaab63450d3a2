package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/store"
)

func TestRecords_RoundTrip(t *testing.T) {
	base := dbArgs(t)

	out, _, err := runCLI(t, with(base, "add", "users", "--record", `{"email":"ada@example.com","age":36}`)...)
	require.NoError(t, err)
	assert.Equal(t, "✓ added users record 1\n", out)

	out, _, err = runCLI(t, with(base, "add", "users", "--record", `{"email":"bob@example.com","age":36,"balance":"9007199254740993"}`)...)
	require.NoError(t, err)
	assert.Equal(t, "✓ added users record 2\n", out)

	out, _, err = runCLI(t, with(base, "get", "users", "age", "36")...)
	require.NoError(t, err)
	assert.Equal(t,
		`{"age":36,"email":"ada@example.com","id":1}`+"\n"+
			`{"age":36,"balance":"9007199254740993","email":"bob@example.com","id":2}`+"\n",
		out)

	out, _, err = runCLI(t, with(base, "update", "users", "age", "36", "--patch", `{"age":37,"admin":true}`)...)
	require.NoError(t, err)
	assert.Equal(t, "✓ updated users record 1\n", out)

	out, _, err = runCLI(t, with(base, "get", "users", "id", "1")...)
	require.NoError(t, err)
	assert.Equal(t, `{"admin":true,"age":37,"email":"ada@example.com","id":1}`+"\n", out)

	out, _, err = runCLI(t, with(base, "delete", "users", "age", "36")...)
	require.NoError(t, err)
	assert.Equal(t, "✓ deleted 1 users record(s)\n", out)

	out, _, err = runCLI(t, with(base, "list", "users")...)
	require.NoError(t, err)
	assert.Equal(t, `{"admin":true,"age":37,"email":"ada@example.com","id":1}`+"\n", out)
}

func TestRecords_EmptyResults(t *testing.T) {
	base := dbArgs(t)

	out, _, err := runCLI(t, with(base, "get", "users", "email", "nobody@example.com")...)
	require.NoError(t, err)
	assert.Equal(t, "(no records)\n", out)

	out, _, err = runCLI(t, with(base, "delete", "users", "email", "nobody@example.com")...)
	require.NoError(t, err)
	assert.Equal(t, "✓ deleted 0 users record(s)\n", out)
}

func TestRecords_JSONOutput(t *testing.T) {
	base := with(dbArgs(t), "--format", "json")

	out, _, err := runCLI(t, with(base, "add", "users", "--record", `{"email":"ada@example.com","prefs":{"theme":"dark"}}`)...)
	require.NoError(t, err)
	var added struct {
		Status string           `json:"status"`
		Data   map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, "ok", added.Status)
	assert.Equal(t, int64(1), added.Data["id"])

	out, _, err = runCLI(t, with(base, "list", "users")...)
	require.NoError(t, err)
	var listed struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, map[string]any{"theme": "dark"}, listed.Data[0]["prefs"])
	assert.Equal(t, float64(1), listed.Data[0]["id"])
}

func TestRecords_ObjectFieldMatchesStructurally(t *testing.T) {
	base := dbArgs(t)

	_, _, err := runCLI(t, with(base, "add", "users", "--record", `{"email":"ada@example.com","prefs":{"b":2,"a":1}}`)...)
	require.NoError(t, err)

	out, _, err := runCLI(t, with(base, "get", "users", "prefs", `{"a":1,"b":2}`)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"email":"ada@example.com"`)
}

func TestRecords_UpdateNoMatch(t *testing.T) {
	base := dbArgs(t)

	out, _, err := runCLI(t, with(base, "update", "users", "email", "nobody@example.com", "--patch", `{"age":1}`)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E203]")
	assert.Contains(t, out, "NOT_FOUND")
}

func TestRecords_InputErrors(t *testing.T) {
	base := dbArgs(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad json", []string{"add", "users", "--record", `{"email":`}, "invalid --record JSON"},
		{"not an object", []string{"add", "users", "--record", `null`}, "--record must be a JSON object"},
		{"unknown field", []string{"add", "users", "--record", `{"nickname":"ada"}`}, "UNKNOWN_FIELD"},
		{"id in record", []string{"add", "users", "--record", `{"id":4}`}, "RESERVED_NAME"},
		{"wrong kind", []string{"add", "users", "--record", `{"age":"old"}`}, "TYPE_MISMATCH"},
		{"unparseable value", []string{"get", "users", "age", "old"}, `cannot parse "old" as number`},
		{"unknown match field", []string{"delete", "users", "nickname", "ada"}, "UNKNOWN_FIELD"},
		{"bad patch", []string{"update", "users", "age", "1", "--patch", `[1]`}, "invalid --patch JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, with(base, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E202]")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRecords_UnknownTable(t *testing.T) {
	out, _, err := runCLI(t, with(dbArgs(t), "list", "orders")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]")
	assert.Contains(t, out, `table "orders" is not declared`)
}

func TestRecords_UniqueViolation(t *testing.T) {
	base := dbArgs(t)

	_, _, err := runCLI(t, with(base, "add", "users", "--record", `{"email":"ada@example.com"}`)...)
	require.NoError(t, err)

	out, _, err := runCLI(t, with(base, "add", "users", "--record", `{"email":"ada@example.com"}`)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E204]")
	assert.Contains(t, out, "UNIQUE constraint failed")
}

func TestRecords_ClearRequiresYes(t *testing.T) {
	base := dbArgs(t)

	_, _, err := runCLI(t, with(base, "add", "notes", "--record", `{"title":"a"}`)...)
	require.NoError(t, err)
	_, _, err = runCLI(t, with(base, "add", "notes", "--record", `{"title":"b"}`)...)
	require.NoError(t, err)

	out, _, err := runCLI(t, with(base, "clear", "notes")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "refusing to clear notes without --yes")

	out, _, err = runCLI(t, with(base, "clear", "notes", "--yes")...)
	require.NoError(t, err)
	assert.Equal(t, "✓ cleared notes (2 record(s))\n", out)

	// Identifiers are not reused after a clear.
	out, _, err = runCLI(t, with(base, "add", "notes", "--record", `{"title":"c"}`)...)
	require.NoError(t, err)
	assert.Equal(t, "✓ added notes record 3\n", out)
}

func TestRecords_PureGoDriver(t *testing.T) {
	base := with(dbArgs(t), "--driver", store.DriverSQLite)

	_, _, err := runCLI(t, with(base, "add", "users", "--record", `{"email":"ada@example.com","avatar":"aGVsbG8="}`)...)
	require.NoError(t, err)

	out, _, err := runCLI(t, with(base, "list", "users")...)
	require.NoError(t, err)
	assert.Equal(t, `{"avatar":"aGVsbG8=","email":"ada@example.com","id":1}`, strings.TrimSpace(out))
}

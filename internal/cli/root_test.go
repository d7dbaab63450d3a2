package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "recstore", cmd.Use)
	assert.Contains(t, cmd.Long, "CUE")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "tables", "add", "get", "update", "delete", "list", "clear", "import", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	for _, name := range []string{"format", "config", "db", "driver", "schemas"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue, "%s defers to config", name)
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		command, flag, def string
	}{
		{"add", "record", "{}"},
		{"update", "patch", "{}"},
		{"clear", "yes", "false"},
		{"test", "update", "false"},
		{"test", "filter", ""},
	}
	for _, tt := range tests {
		sub, _, err := cmd.Find([]string{tt.command})
		require.NoError(t, err)
		flag := sub.Flags().Lookup(tt.flag)
		require.NotNil(t, flag, "%s --%s", tt.command, tt.flag)
		assert.Equal(t, tt.def, flag.DefValue)
	}
}

func TestConfig_Layering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "recstore.toml")
	t.Setenv("RECSTORE_TEST_DB", filepath.Join(dir, "from-env.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[database]
path = "${RECSTORE_TEST_DB}"
driver = "sqlite"

[output]
format = "json"
`), 0644))

	t.Run("file over defaults", func(t *testing.T) {
		opts := &RootOptions{ConfigPath: cfgPath}
		cfg, err := opts.Config()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "from-env.db"), cfg.Database.Path)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "schemas", cfg.Schemas.Dir)
		assert.Equal(t, "json", opts.Format)
	})

	t.Run("flags over file", func(t *testing.T) {
		opts := &RootOptions{ConfigPath: cfgPath, DBPath: "flag.db", Format: "text", Verbose: true}
		cfg, err := opts.Config()
		require.NoError(t, err)
		assert.Equal(t, "flag.db", cfg.Database.Path)
		assert.Equal(t, "text", cfg.Output.Format)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestConfig_InvalidFormat(t *testing.T) {
	opts := &RootOptions{Format: "yaml"}
	_, err := opts.Config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)

	_, _, err = runCLI(t, "--format", "yaml", "validate", testSchemasDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfig_UnknownDriver(t *testing.T) {
	_, _, err := runCLI(t, "--driver", "postgres", "list", "users")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

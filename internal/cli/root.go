package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore/internal/config"
)

// RootOptions holds global flags for all commands.
// Empty values defer to the config file, then to config.Default.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DBPath     string
	Driver     string
	SchemasDir string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the recstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recstore",
		Short: "recstore - schema-driven record tables on SQLite",
		Long: `A record store for tables declared in CUE.

Each table is declared once under "table:" in a CUE file. Records are
added, matched by one field, patched, and deleted from the command line.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.Config(); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.SchemasDir, "schemas", "", "directory of CUE table declarations")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Config resolves the effective configuration once: defaults, then the
// config file, then flags. Format is updated to the resolved value.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}

	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.DBPath != "" {
		cfg.Database.Path = o.DBPath
	}
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.SchemasDir != "" {
		cfg.Schemas.Dir = o.SchemasDir
	}
	if o.Format != "" {
		if !isValidFormat(o.Format) {
			return nil, fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
		}
		cfg.Output.Format = o.Format
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o.Format = cfg.Output.Format
	o.cfg = cfg
	return cfg, nil
}

// logLevel returns the slog level for diagnostic output.
func (o *RootOptions) logLevel() slog.Level {
	if o.cfg == nil {
		return slog.LevelWarn
	}
	return o.cfg.SlogLevel()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

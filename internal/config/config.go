// Package config loads the recstore TOML configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the complete recstore configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Schemas  SchemasConfig  `toml:"schemas"`
	Logging  LoggingConfig  `toml:"logging"`
	Output   OutputConfig   `toml:"output"`
}

// DatabaseConfig selects the database file and driver.
type DatabaseConfig struct {
	Path   string `toml:"path"`
	Driver string `toml:"driver"` // "sqlite3" (cgo) or "sqlite" (pure Go)
}

// SchemasConfig locates the CUE table declarations.
type SchemasConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// OutputConfig holds CLI output configuration.
type OutputConfig struct {
	Format string `toml:"format"` // "text" or "json"
}

var (
	validDrivers = []string{"sqlite3", "sqlite"}
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "recstore.db", Driver: "sqlite3"},
		Schemas:  SchemasConfig{Dir: "schemas"},
		Logging:  LoggingConfig{Level: "warn"},
		Output:   OutputConfig{Format: "text"},
	}
}

// Load reads config from the given path, expanding environment variables.
// Keys missing from the file keep their Default values. Unknown keys are
// rejected so a typo does not silently fall back to a default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	cfg := Default()
	md, err := toml.Decode(expanded, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with environment variable values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that required config fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !slices.Contains(validDrivers, c.Database.Driver) {
		return fmt.Errorf("database.driver %q must be one of %v", c.Database.Driver, validDrivers)
	}
	if c.Schemas.Dir == "" {
		return fmt.Errorf("schemas.dir is required")
	}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level %q must be one of %v", c.Logging.Level, validLevels)
	}
	if !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("output.format %q must be one of %v", c.Output.Format, validFormats)
	}
	return nil
}

// SlogLevel returns the slog level named by Logging.Level.
// Unrecognized levels map to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

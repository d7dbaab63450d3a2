package recordstore

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// TokenGenerator names Handles in log output.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 handle tokens.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type options struct {
	logger *slog.Logger
	tokens TokenGenerator
}

// Option configures Open and OpenTable.
type Option func(*options)

// WithLogger sets the logger. Every record carries table and handle attrs.
// Defaults to discarding.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenGenerator overrides how handle tokens are generated.
// Tests use fixed tokens for deterministic log output.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(o *options) { o.tokens = g }
}

func buildOptions(opts []Option) options {
	o := options{tokens: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore/internal/recordstore"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/store"
)

// session is an open database plus the compiled table declarations.
// Commands open one per invocation and close it before returning.
type session struct {
	store   *store.Store
	schemas *LoadResult
	logger  *slog.Logger
	out     *OutputFormatter
}

// openSession resolves config, compiles the schemas directory, and opens
// the database. Errors are already reported through the formatter.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.Config()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	formatter.Format = cfg.Output.Format

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: opts.logLevel()}))

	loaded, loadErrs := LoadSchemas(cfg.Schemas.Dir, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return nil, formatter.Fail(loadErrs[0])
	}
	formatter.VerboseLog("Loaded %d table(s) from %d CUE file(s) in %s",
		len(loaded.Schemas), loaded.FileCount, cfg.Schemas.Dir)

	st, err := store.Open(cfg.Database.Path, store.WithDriver(cfg.Database.Driver), store.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeStorage, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	return &session{store: st, schemas: loaded, logger: logger, out: formatter}, nil
}

// Close closes the database.
func (s *session) Close() error {
	return s.store.Close()
}

// schema returns the declaration for name or an unknown-table error.
func (s *session) schema(name string) (schema.Schema, error) {
	sch, ok := s.schemas.Schema(name)
	if !ok {
		return schema.Schema{}, &LoadError{
			Code:    ErrCodeUnknownTable,
			Message: fmt.Sprintf("table %q is not declared (known: %v)", name, s.schemas.Names()),
		}
	}
	return sch, nil
}

// table opens the named table, declaring it if needed.
func (s *session) table(ctx context.Context, name string) (*recordstore.Table, error) {
	sch, err := s.schema(name)
	if err != nil {
		return nil, err
	}
	return recordstore.OpenTable(ctx, s.store, sch, recordstore.WithLogger(s.logger))
}

// withTable opens a session and the named table, runs fn, and closes both.
func withTable(opts *RootOptions, cmd *cobra.Command, name string, fn func(ctx context.Context, s *session, t *recordstore.Table) error) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tbl, err := sess.table(ctx, name)
	if err != nil {
		return sess.out.Fail(err)
	}
	defer tbl.Close()

	if err := fn(ctx, sess, tbl); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return sess.out.Fail(err)
	}
	return nil
}

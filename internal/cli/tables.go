package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore/internal/recordstore"
	"github.com/roach88/recstore/internal/schema"
)

// TableInfo is one catalogued table as printed by the tables command.
type TableInfo struct {
	Name    string         `json:"name"`
	Version int            `json:"version"`
	Hash    string         `json:"schema_hash"`
	Fields  []schema.Field `json:"fields"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Declare every table and list the catalog",
		Long: `Declare every table in the schemas directory, then list the catalog.

Declaring creates missing tables and adds new fields to existing ones.
A field whose type changed is reported as a conflict and nothing is applied
for that table.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, cmd)
		},
	}
}

func runTables(opts *RootOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open every table at once; each handle declares in the background.
	handles := make([]*recordstore.Handle, len(sess.schemas.Schemas))
	for i, sch := range sess.schemas.Schemas {
		handles[i] = recordstore.Open(ctx, sess.store, sch, recordstore.WithLogger(sess.logger))
	}
	defer func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}()
	// Every handle finishes before the session closes the database.
	var errs []error
	for _, h := range handles {
		if _, err := h.Wait(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		sess.out.VerboseLog("Declared %s", h.Name())
	}
	if len(errs) > 0 {
		return sess.out.Fail(errors.Join(errs...))
	}

	decls, err := sess.store.Tables(ctx)
	if err != nil {
		return sess.out.Fail(err)
	}

	infos := make([]TableInfo, len(decls))
	for i, d := range decls {
		infos[i] = TableInfo{Name: d.Table, Version: d.Version, Hash: d.Hash, Fields: d.Schema.Fields()}
	}

	if sess.out.Format == "json" {
		return sess.out.Success(infos)
	}

	w := sess.out.Writer
	for _, info := range infos {
		fmt.Fprintf(w, "%s (v%d)\n", info.Name, info.Version)
		for _, f := range info.Fields {
			var flags []string
			if f.Unique {
				flags = append(flags, "unique")
			}
			suffix := ""
			if len(flags) > 0 {
				suffix = " [" + strings.Join(flags, ",") + "]"
			}
			fmt.Fprintf(w, "  %-20s %s%s\n", f.Name, f.Type, suffix)
		}
	}
	return nil
}

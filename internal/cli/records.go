package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/recordstore"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Record string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <table>",
		Short: "Add a record",
		Long: `Add a record to a table and print its identifier.

Fields are given as a JSON object. Bigint fields take integers or decimal
strings; binary fields take base64 strings.

Example:
  recstore add users --record '{"email":"ada@example.com","age":36}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(opts.RootOptions, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				rec, err := parseRecord(t, "--record", opts.Record)
				if err != nil {
					return err
				}
				id, err := t.Add(ctx, rec)
				if err != nil {
					return err
				}
				return s.out.OK(map[string]int64{"id": id}, "added %s record %d", t.Name(), id)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Record, "record", "{}", "record fields as JSON")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <field> <value>",
		Short: "Print records whose field equals value",
		Long: `Print every record whose field equals value, in identifier order.

The value is parsed according to the field's declared type. Use "id" as
the field to look up one record by identifier.

Example:
  recstore get users email ada@example.com`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				value, err := t.Schema().ParseValue(args[1], args[2])
				if err != nil {
					return err
				}
				records, err := t.GetByField(ctx, args[1], value)
				if err != nil {
					return err
				}
				return outputRecords(s.out, records)
			})
		},
	}
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Patch string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <table> <field> <value>",
		Short: "Patch the first record whose field equals value",
		Long: `Patch the first record (lowest identifier) whose field equals value.

Only fields present in --patch change. A null clears the field.
Exits 1 when no record matches.

Example:
  recstore update users email ada@example.com --patch '{"age":37}'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(opts.RootOptions, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				value, err := t.Schema().ParseValue(args[1], args[2])
				if err != nil {
					return err
				}
				patch, err := parseRecord(t, "--patch", opts.Patch)
				if err != nil {
					return err
				}
				id, err := t.Update(ctx, args[1], value, patch)
				if err != nil {
					return err
				}
				return s.out.OK(map[string]int64{"id": id}, "updated %s record %d", t.Name(), id)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Patch, "patch", "{}", "fields to overwrite as JSON")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <field> <value>",
		Short: "Delete every record whose field equals value",
		Long: `Delete every record whose field equals value and print how many were deleted.

Deleting nothing is not an error.

Example:
  recstore delete users age 36`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				value, err := t.Schema().ParseValue(args[1], args[2])
				if err != nil {
					return err
				}
				n, err := t.DeleteByField(ctx, args[1], value)
				if err != nil {
					return err
				}
				return s.out.OK(map[string]int64{"deleted": n}, "deleted %d %s record(s)", n, t.Name())
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <table>",
		Short:         "Print every record in identifier order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				records, err := t.GetAll(ctx)
				if err != nil {
					return err
				}
				return outputRecords(s.out, records)
			})
		},
	}
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear <table>",
		Short: "Delete every record in a table",
		Long: `Delete every record in a table. This cannot be undone, so --yes is required.

Identifiers are not reused after a clear.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(opts.RootOptions, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				if !opts.Yes {
					return &inputError{msg: fmt.Sprintf("refusing to clear %s without --yes", t.Name())}
				}
				n, err := t.DeleteAll(ctx)
				if err != nil {
					return err
				}
				return s.out.OK(map[string]int64{"deleted": n}, "cleared %s (%d record(s))", t.Name(), n)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deleting every record")

	return cmd
}

// parseRecord decodes a JSON object flag and coerces it to the table's field types.
func parseRecord(t *recordstore.Table, flag, text string) (ir.Object, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &inputError{msg: fmt.Sprintf("invalid %s JSON", flag), err: err}
	}
	if raw == nil {
		return nil, &inputError{msg: fmt.Sprintf("%s must be a JSON object", flag)}
	}
	return t.Schema().CoerceRecord(raw)
}

// outputRecords prints records as one JSON object per line, or as the
// data array in JSON mode.
func outputRecords(f *OutputFormatter, records []recordstore.Record) error {
	if f.Format == "json" {
		return f.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(f.Writer, "(no records)")
		return nil
	}
	for _, r := range records {
		data, err := r.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(f.Writer, string(data))
	}
	return nil
}

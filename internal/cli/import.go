package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recstore/internal/ir"
	"github.com/roach88/recstore/internal/recordstore"
	"github.com/roach88/recstore/internal/schema"
)

// ImportResult reports the identifiers assigned by an import.
type ImportResult struct {
	Table string  `json:"table"`
	Added int     `json:"added"`
	IDs   []int64 `json:"ids"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <table> <file>",
		Short: "Add records from a YAML or JSON file",
		Long: `Add every record in a YAML (.yaml, .yml) or JSON (.json) file.

The file holds a list of records. They are added in one transaction:
if any record is malformed or violates a unique field, nothing is added.

Example:
  recstore import users ./users.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(ctx context.Context, s *session, t *recordstore.Table) error {
				raw, err := readRecordsFile(args[1])
				if err != nil {
					return err
				}
				records, err := coerceAll(t.Schema(), raw)
				if err != nil {
					return err
				}
				s.out.VerboseLog("Importing %d record(s) into %s", len(records), t.Name())

				ids, err := t.AddAll(ctx, records)
				if err != nil {
					return err
				}
				result := ImportResult{Table: t.Name(), Added: len(ids), IDs: ids}
				return s.out.OK(result, "imported %d record(s) into %s", result.Added, t.Name())
			})
		},
	}
}

// readRecordsFile decodes a list of records, choosing the decoder by extension.
func readRecordsFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &inputError{msg: "read import file", err: err}
	}

	var records []map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, &inputError{msg: fmt.Sprintf("parse %s", path), err: err}
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&records); err != nil {
			return nil, &inputError{msg: fmt.Sprintf("parse %s", path), err: err}
		}
	default:
		return nil, &inputError{msg: fmt.Sprintf("unsupported import format %q (want .yaml, .yml or .json)", ext)}
	}
	return records, nil
}

func coerceAll(sch schema.Schema, raw []map[string]any) ([]ir.Object, error) {
	records := make([]ir.Object, len(raw))
	for i, r := range raw {
		rec, err := sch.CoerceRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = rec
	}
	return records, nil
}

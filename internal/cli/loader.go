package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/recstore/internal/compiler"
	"github.com/roach88/recstore/internal/recordstore"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/store"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the tables compiled from a schemas directory.
type LoadResult struct {
	Schemas   []schema.Schema
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// Schema returns the compiled table called name.
func (r *LoadResult) Schema(name string) (schema.Schema, bool) {
	for _, s := range r.Schemas {
		if s.Name() == name {
			return s, true
		}
	}
	return schema.Schema{}, false
}

// Names returns the table names in declaration order.
func (r *LoadResult) Names() []string {
	names := make([]string, len(r.Schemas))
	for i, s := range r.Schemas {
		names[i] = s.Name()
	}
	return names
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchemas loads CUE files from dir and compiles every table under
// `table:`. If mode is LoadModeFailFast, returns on the first compile
// error; if LoadModeCollectAll, compiles every table and returns all errors.
// A nil result means the directory itself could not be loaded.
func LoadSchemas(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schemas directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schemas directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Schemas:   []schema.Schema{},
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	tablesVal := value.LookupPath(cue.ParsePath("table"))
	if tablesVal.Exists() {
		iter, iterErr := tablesVal.Fields()
		if iterErr != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating tables: %v", iterErr)}}
		}
		for iter.Next() {
			s, compileErr := compiler.CompileTable(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "table."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Schemas = append(result.Schemas, s)
		}
	}

	if len(result.Schemas) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoTables, Message: "no tables declared under \"table:\""})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoTables    = "E007" // No tables declared

	// Table declaration errors
	ErrCodeInvalidTable = "E101" // Table-level problem (name, shape, reserved)
	ErrCodeInvalidField = "E102" // Field-level problem (type, flag, name)

	// Record operation errors
	ErrCodeUnknownTable   = "E201" // Table not declared in the schemas directory
	ErrCodeInvalidInput   = "E202" // Bad JSON/YAML, unknown field, or wrong value kind
	ErrCodeNoMatch        = "E203" // Update matched no record
	ErrCodeStorage        = "E204" // Storage engine failure (constraints, I/O)
	ErrCodeSchemaConflict = "E205" // Declaration incompatible with the stored table

	// Scenario errors
	ErrCodeTestFailed = "E301" // One or more scenarios failed
)

// MapFieldToErrorCode maps a compiler error path to an error code.
// Paths look like "table.<name>" or "table.<name>.<field>".
func MapFieldToErrorCode(field string) string {
	switch strings.Count(field, ".") {
	case 1:
		return ErrCodeInvalidTable
	case 2:
		return ErrCodeInvalidField
	default:
		return ErrCodeGeneric
	}
}

// inputError marks a problem with user-supplied input.
type inputError struct {
	msg string
	err error
}

func (e *inputError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *inputError) Unwrap() error { return e.err }

// classify maps an error to its CLI error code and exit code.
func classify(err error) (string, int) {
	var loadErr *LoadError
	var inErr *inputError
	var verr *schema.ValidationError
	var conflict *store.SchemaConflictError

	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code, ExitCommandError
	case errors.As(err, &inErr):
		return ErrCodeInvalidInput, ExitCommandError
	case errors.As(err, &conflict):
		return ErrCodeSchemaConflict, ExitFailure
	}

	switch recordstore.CodeOf(err) {
	case recordstore.CodeUnknownField, recordstore.CodeTypeMismatch:
		return ErrCodeInvalidInput, ExitCommandError
	case recordstore.CodeNotFound:
		return ErrCodeNoMatch, ExitFailure
	case recordstore.CodeNotReady, recordstore.CodeClosed:
		return ErrCodeGeneric, ExitFailure
	}

	if errors.As(err, &verr) {
		return ErrCodeInvalidInput, ExitCommandError
	}
	return ErrCodeStorage, ExitFailure
}

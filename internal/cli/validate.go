package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Tables []string          `json:"tables,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a schemas directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schemas-dir]",
		Short: "Check table declarations without opening the database",
		Long: `Compile every table declared under "table:" and report all problems.

The directory defaults to the configured schemas directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.Config()
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.Format = cfg.Output.Format
	if dir == "" {
		dir = cfg.Schemas.Dir
	}

	loadResult, loadErrors := LoadSchemas(dir, LoadModeCollectAll)

	// Directory-level failures (missing, empty, unparseable)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, toIssues(loadErrors))
	}

	return outputValidateSuccess(formatter, loadResult.Names())
}

func toIssues(errs []error) []ValidationIssue {
	issues := make([]ValidationIssue, 0, len(errs))
	for _, err := range errs {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			issues = append(issues, ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()})
			continue
		}
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.File = loadErr.Pos.Filename()
			issue.Line = loadErr.Pos.Line()
		}
		issues = append(issues, issue)
	}
	return issues
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, tables []string) error {
	return formatter.OK(ValidationResult{Valid: true, Tables: tables}, "%d table(s) valid: %v", len(tables), tables)
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Directory problems are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Declaration failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", failMark("✗"))

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Name     string                     `json:"name,omitempty"`
	Hash     string                     `json:"hash,omitempty"`
	Types    int                        `json:"types"`
	States   int                        `json:"states"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.RuleWarning     `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <ruleset>",
		Short: "Validate a ruleset without running it",
		Long: `Validate a .cue, .yaml or .toml ruleset.

Reports every declaration error at once, then loads the rule table and
runs static analysis: rules hidden behind an earlier catch-all are
reported as warnings, transition cycles as info.

Exit codes:
  0 - Ruleset is valid (warnings do not fail)
  1 - Validation failed
  2 - Command error (file not found, does not compile)

Examples:
  cellsim validate ./circuit.toml
  cellsim validate ./circuit.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := ValidateRulesetFile(path)
	if err != nil {
		return formatter.commandError("failed to compile ruleset", err)
	}
	formatter.VerboseLog("Validated %s: %d type(s), %d rule(s)", path, result.Types, result.Rules)

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateRulesetFile compiles a ruleset and collects every validation error.
// A ruleset that does not compile at all is returned as an error.
func ValidateRulesetFile(path string) (*ValidationResult, error) {
	decl, err := compileRulesetFile(path)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Name:  decl.Name,
		Types: len(decl.Cells),
		Rules: len(decl.Rules),
	}
	if errs := compiler.Validate(decl); len(errs) > 0 {
		result.Errors = errs
		return result, nil
	}

	// Declarations are well-formed; loading checks what needs the whole
	// registry, such as output patterns that cannot be completed.
	loaded, err := loadDecl(path, decl)
	if err != nil {
		result.Errors = []compiler.ValidationError{{
			Field:   "rules",
			Message: err.Error(),
			Code:    loadErrorCode(err),
		}}
		return result, nil
	}

	result.Valid = true
	result.Hash = loaded.Hash
	result.States = loaded.Registry.NumStates()
	result.Warnings = compiler.AnalyzeRules(decl)
	return result, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Ruleset %q valid: %d type(s), %d state(s), %d rule(s)\n",
		result.Name, result.Types, result.States, result.Rules)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  %s: %s\n", warn.Level, warn.Message)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

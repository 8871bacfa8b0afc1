package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perflab/benchmatrix/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                           `json:"valid"`
	Entries int                            `json:"entries"`
	Runners int                            `json:"runners"`
	Errors  []schema.ConfigValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configs without expanding the matrix",
		Long: `Validate master benchmark configurations and the runner registry
without expanding the job matrix.

Collects every schema violation rather than stopping at the first, so a
config author sees the full repair list in one pass.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateConfigs(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.configs, "config", nil, "master config file (repeatable)")
	cmd.Flags().StringVar(&opts.runnerConfig, "runner-config", "", "runner registry file")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("runner-config")

	return cmd
}

func runValidateConfigs(rootOpts *RootOptions, opts *generateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	in, valErrs, err := LoadInputs(opts.configs, opts.runnerConfig)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if len(valErrs) > 0 {
		result := ValidationResult{Valid: false, Errors: valErrs}
		if formatter.Format == "json" {
			formatter.Error(valErrs[0].Code,
				fmt.Sprintf("%d validation error(s)", len(valErrs)), result)
		} else {
			fmt.Fprintf(formatter.Writer, "invalid: %d error(s)\n", len(valErrs))
			for _, e := range valErrs {
				fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(valErrs)))
	}

	result := ValidationResult{
		Valid:   true,
		Entries: len(in.Config.Entries),
		Runners: len(in.Registry),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "valid: %d entries, %d runners\n", result.Entries, result.Runners)
	return nil
}

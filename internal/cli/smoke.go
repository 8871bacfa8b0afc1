package cli

import (
	"github.com/spf13/cobra"

	"github.com/perflab/benchmatrix/internal/compat"
	"github.com/perflab/benchmatrix/internal/sweep"
)

// smokeOptions holds flags for the smoke command.
type smokeOptions struct {
	generateOptions
	runnerType  string
	concurrency int
}

// NewSmokeCommand creates the smoke command.
func NewSmokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &smokeOptions{}

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Emit one minimal job per config targeting a runner type",
		Long: `Emit one minimal job specification per config entry that targets the
given runner type: the smallest workload shape at the entry's lowest
concurrency. Use before a full sweep to confirm every declared
configuration actually starts on the hardware.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmoke(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.configs, "config", nil, "master config file (repeatable)")
	cmd.Flags().StringVar(&opts.runnerConfig, "runner-config", "", "runner registry file")
	cmd.Flags().StringVar(&opts.runnerType, "runner-type", "", "runner type to smoke test")
	cmd.Flags().IntVar(&opts.concurrency, "conc", 0, "override the per-entry lowest concurrency")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "json", "job list format (json|csv|text)")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("runner-config")
	cmd.MarkFlagRequired("runner-type")

	return cmd
}

func runSmoke(rootOpts *RootOptions, opts *smokeOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if !isValidOutputFormat(opts.outputFormat) {
		return NewExitError(ExitCommandError, "invalid output format "+opts.outputFormat)
	}

	in, valErrs, err := LoadInputs(opts.configs, opts.runnerConfig)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	if len(valErrs) > 0 {
		return validationFailure(formatter, valErrs)
	}

	expander, err := sweep.NewExpander(in.Registry, compat.Default())
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	diag := &sweep.Diagnostics{}
	jobs, err := expander.SmokeJobs(in.Config.Entries, opts.runnerType, opts.concurrency, diag)
	if err != nil {
		return emitFailure(formatter, err)
	}

	if err := writeJobs(cmd.OutOrStdout(), opts.outputFormat, jobs); err != nil {
		return emitFailure(formatter, err)
	}
	formatter.VerboseLog("smoke: %d job(s) for runner type %s, %d denied",
		len(jobs), opts.runnerType, diag.Denied)
	return nil
}

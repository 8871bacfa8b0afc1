package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/perflab/benchmatrix/internal/compat"
	"github.com/perflab/benchmatrix/internal/emit"
	"github.com/perflab/benchmatrix/internal/ledger"
	"github.com/perflab/benchmatrix/internal/matrix"
	"github.com/perflab/benchmatrix/internal/schema"
	"github.com/perflab/benchmatrix/internal/sweep"
)

// generateOptions holds flags for the generate command.
type generateOptions struct {
	configs      []string
	runnerConfig string
	only         []string

	filterModel     string
	filterFramework string
	filterPrecision string
	filterRunner    string

	outputFormat string
	outputPath   string
	ledgerPath   string
}

// Output formats for the emitted job list.
var validOutputFormats = []string{"json", "csv", "text"}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Expand benchmark configs into the full job matrix",
		Long: `Expand master benchmark configurations into the complete ordered list
of job specifications: every legal (runner, sequence-length bucket,
concurrency) combination, filtered by the compatibility rules and any
invoker-supplied narrowing.

The emitted order is deterministic: entries in declaration order, then
runners in declaration order, then buckets in declaration order, then
concurrency increasing. Identical input bytes always produce an
identical job list.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.configs, "config", nil, "master config file (repeatable)")
	cmd.Flags().StringVar(&opts.runnerConfig, "runner-config", "", "runner registry file")
	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "restrict to these model-prefix keys")
	cmd.Flags().StringVar(&opts.filterModel, "model", "", "filter: model-prefix prefix match")
	cmd.Flags().StringVar(&opts.filterFramework, "framework", "", "filter: framework equality")
	cmd.Flags().StringVar(&opts.filterPrecision, "precision", "", "filter: precision equality")
	cmd.Flags().StringVar(&opts.filterRunner, "runner", "", "filter: runner equality")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "json", "job list format (json|csv|text)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "write job list to file instead of stdout")
	cmd.Flags().StringVar(&opts.ledgerPath, "ledger", "", "record this run in the given ledger database")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("runner-config")

	return cmd
}

func runGenerate(rootOpts *RootOptions, opts *generateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if !isValidOutputFormat(opts.outputFormat) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid output format %q: must be one of %v", opts.outputFormat, validOutputFormats))
	}

	jobs, diag, inputHash, err := expandJobs(opts, formatter)
	if err != nil {
		return err
	}

	// Render into memory first: a fatal emission error must leave any
	// previous output artifact untouched.
	var buf bytes.Buffer
	if err := writeJobs(&buf, opts.outputFormat, jobs); err != nil {
		return emitFailure(formatter, err)
	}

	if opts.outputPath != "" {
		if err := os.WriteFile(opts.outputPath, buf.Bytes(), 0o644); err != nil {
			formatter.Error(ErrCodeWrite, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	} else {
		if _, err := buf.WriteTo(cmd.OutOrStdout()); err != nil {
			return WrapExitError(ExitCommandError, "writing output", err)
		}
	}

	if opts.ledgerPath != "" {
		if err := recordRun(opts.ledgerPath, inputHash, jobs); err != nil {
			formatter.Error(ErrCodeGeneric, fmt.Sprintf("recording run: %v", err), nil)
			return WrapExitError(ExitCommandError, "recording run", err)
		}
	}

	formatter.VerboseLog("expanded %d candidates: %d emitted, %d denied",
		diag.Candidates, diag.Emitted, diag.Denied)
	return nil
}

// expandJobs runs the load / select / expand / filter pipeline shared
// with the smoke command's full-matrix sibling.
func expandJobs(opts *generateOptions, formatter *OutputFormatter) ([]matrix.JobSpec, *sweep.Diagnostics, string, error) {
	in, valErrs, err := LoadInputs(opts.configs, opts.runnerConfig)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return nil, nil, "", NewExitError(ExitCommandError, err.Error())
	}
	if len(valErrs) > 0 {
		return nil, nil, "", validationFailure(formatter, valErrs)
	}

	entries := in.Config.Entries
	if len(opts.only) > 0 {
		entries, err = in.Config.Select(opts.only)
		if err != nil {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return nil, nil, "", NewExitError(ExitCommandError, err.Error())
		}
	}

	filters, err := buildFilters(opts)
	if err != nil {
		return nil, nil, "", emitFailure(formatter, err)
	}

	expander, err := sweep.NewExpander(in.Registry, compat.Default())
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, nil, "", NewExitError(ExitCommandError, err.Error())
	}

	diag := &sweep.Diagnostics{}
	jobs, err := expander.Expand(entries, diag)
	if err != nil {
		return nil, nil, "", emitFailure(formatter, err)
	}

	jobs = sweep.Apply(jobs, filters)
	return jobs, diag, in.InputHash, nil
}

// buildFilters turns the filter flags into sweep filters. Field names are
// fixed by the flag set, so construction errors indicate a programming
// mistake rather than user input.
func buildFilters(opts *generateOptions) ([]sweep.Filter, error) {
	pairs := []struct {
		field string
		value string
	}{
		{sweep.FilterModel, opts.filterModel},
		{sweep.FilterFramework, opts.filterFramework},
		{sweep.FilterPrecision, opts.filterPrecision},
		{sweep.FilterRunner, opts.filterRunner},
	}

	var filters []sweep.Filter
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		f, err := sweep.NewFilter(p.field, p.value)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func writeJobs(w io.Writer, format string, jobs []matrix.JobSpec) error {
	switch format {
	case "json":
		return emit.WriteJSON(w, jobs)
	case "csv":
		return emit.WriteCSV(w, jobs)
	case "text":
		return emit.WriteText(w, jobs)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func recordRun(path, inputHash string, jobs []matrix.JobSpec) error {
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	_, err = l.RecordRun(context.Background(), inputHash, jobs)
	return err
}

// validationFailure reports collected schema errors and returns the
// matching ExitError.
func validationFailure(formatter *OutputFormatter, errs []schema.ConfigValidationError) error {
	formatter.Error(errs[0].Code,
		fmt.Sprintf("%d validation error(s)", len(errs)), errs)
	if formatter.Format != "json" {
		for _, e := range errs {
			fmt.Fprintf(formatter.GetErrWriter(), "  %s\n", e.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
}

// emitFailure maps pipeline errors onto the structured error output and
// an ExitError carrying the right exit code.
func emitFailure(formatter *OutputFormatter, err error) error {
	var (
		refErr    *sweep.ReferentialError
		rangeErr  *sweep.SweepRangeError
		filterErr *sweep.FilterError
		dupErr    *emit.DuplicateSlugError
	)
	switch {
	case errors.As(err, &refErr):
		formatter.Error(refErr.Code, refErr.Error(), nil)
	case errors.As(err, &rangeErr):
		formatter.Error(rangeErr.Code, rangeErr.Error(), nil)
	case errors.As(err, &filterErr):
		formatter.Error(filterErr.Code, filterErr.Error(), nil)
	case errors.As(err, &dupErr):
		formatter.Error(emit.ErrDuplicateSlug, dupErr.Error(), nil)
	default:
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
	}
	return NewExitError(ExitFailure, err.Error())
}

func isValidOutputFormat(format string) bool {
	for _, f := range validOutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

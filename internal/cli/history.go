package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perflab/benchmatrix/internal/ledger"
)

// historyOptions holds flags for the history command.
type historyOptions struct {
	ledgerPath string
	limit      int
	verify     bool
}

// HistoryResult is the history command's success payload.
type HistoryResult struct {
	Runs    []ledger.Run             `json:"runs"`
	Reports []ledger.StabilityReport `json:"stability_reports,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long: `List generation runs recorded in a ledger database, newest first.

With --verify, additionally compare the slug sequences of all runs that
share an input hash: identical input must have produced identical job
lists, so any divergence means generation was not deterministic.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ledgerPath, "ledger", "", "ledger database path")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "verify slug-sequence stability per input hash")
	cmd.MarkFlagRequired("ledger")

	return cmd
}

func runHistory(rootOpts *RootOptions, opts *historyOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	// An absent ledger is a command error, not an empty history.
	if _, err := os.Stat(opts.ledgerPath); err != nil {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("ledger not found: %s", opts.ledgerPath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("ledger not found: %s", opts.ledgerPath))
	}

	l, err := ledger.Open(opts.ledgerPath)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer l.Close()

	ctx := context.Background()
	runs, err := l.ListRuns(ctx, opts.limit)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	result := HistoryResult{Runs: runs}
	unstable := 0
	if opts.verify {
		hashes, err := l.InputHashes(ctx)
		if err != nil {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
		for _, h := range hashes {
			report, err := l.VerifyStability(ctx, h)
			if err != nil {
				formatter.Error(ErrCodeGeneric, err.Error(), nil)
				return NewExitError(ExitCommandError, err.Error())
			}
			result.Reports = append(result.Reports, report)
			if !report.Stable {
				unstable++
			}
		}
	}

	if formatter.Format == "json" {
		if unstable > 0 {
			formatter.Error(ErrCodeGeneric,
				fmt.Sprintf("%d input hash(es) with divergent runs", unstable), result)
			return NewExitError(ExitFailure, fmt.Sprintf("%d unstable input hash(es)", unstable))
		}
		return formatter.Success(result)
	}

	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  jobs=%d  input=%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.JobCount, r.InputHash[:12])
	}
	for _, rep := range result.Reports {
		if rep.Stable {
			fmt.Fprintf(formatter.Writer, "stable: %s (%d run(s))\n", rep.InputHash[:12], len(rep.RunIDs))
		} else {
			fmt.Fprintf(formatter.Writer, "UNSTABLE: %s: %s\n", rep.InputHash[:12], rep.Divergence)
		}
	}
	if unstable > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unstable input hash(es)", unstable))
	}
	return nil
}

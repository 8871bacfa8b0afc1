// Package sweep expands validated benchmark-intent entries into the
// ordered list of fully resolved JobSpecs: the cross product of runner x
// sequence-length bucket x concurrency value, checked against the
// compatibility rules, then narrowed by invoker filters.
//
// Ordering is a contract, not an implementation detail: runners in
// declaration order, buckets in declaration order, concurrency values
// increasing. Downstream CI matrices depend on stable ordering across
// runs with identical input.
package sweep

import (
	"errors"
	"fmt"

	"github.com/perflab/benchmatrix/internal/compat"
	"github.com/perflab/benchmatrix/internal/matrix"
)

// Diagnostics summarizes one expansion run. Compatibility denials are
// expected filtering outcomes and are counted here, never reported as
// errors.
type Diagnostics struct {
	Candidates    int            `json:"candidates"`
	Emitted       int            `json:"emitted"`
	Denied        int            `json:"denied"`
	DenialReasons map[string]int `json:"denial_reasons,omitempty"`
}

func (d *Diagnostics) countDenial(reasons []string) {
	d.Denied++
	if d.DenialReasons == nil {
		d.DenialReasons = make(map[string]int)
	}
	for _, r := range reasons {
		d.DenialReasons[r]++
	}
}

// Expander resolves entries against the runner registry and the
// compatibility rules. Read-only after construction.
type Expander struct {
	Registry matrix.RunnerRegistry
	Rules    *compat.Rules
}

// NewExpander builds an expander, verifying the rule table is total over
// the enumeration domains before any expansion.
func NewExpander(registry matrix.RunnerRegistry, rules *compat.Rules) (*Expander, error) {
	if err := rules.CheckTotality(); err != nil {
		return nil, fmt.Errorf("compatibility rules: %w", err)
	}
	return &Expander{Registry: registry, Rules: rules}, nil
}

// Expand produces the ordered JobSpec list for the given entries.
// Candidates denied by the compatibility rules are dropped and counted in
// diag; an entry referencing a runner absent from the registry aborts the
// whole run with a ReferentialError.
func (e *Expander) Expand(entries []matrix.MasterConfigEntry, diag *Diagnostics) ([]matrix.JobSpec, error) {
	if diag == nil {
		diag = &Diagnostics{}
	}

	var jobs []matrix.JobSpec
	for _, entry := range entries {
		expanded, err := e.expandEntry(entry, diag)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, expanded...)
	}
	diag.Emitted = len(jobs)
	return jobs, nil
}

// expandEntry is the dimensional expansion for one entry: runner x bucket
// x concurrency, in that nesting order.
func (e *Expander) expandEntry(entry matrix.MasterConfigEntry, diag *Diagnostics) ([]matrix.JobSpec, error) {
	concValues, err := ExpandConcurrency(entry.Sweep)
	if err != nil {
		var rangeErr *SweepRangeError
		if errors.As(err, &rangeErr) {
			rangeErr.EntryKey = entry.Key
		}
		return nil, err
	}

	var jobs []matrix.JobSpec
	for _, runnerName := range entry.Runners {
		runner, ok := e.Registry[runnerName]
		if !ok {
			return nil, &ReferentialError{
				Code:     ErrUnknownRunner,
				EntryKey: entry.Key,
				Message: fmt.Sprintf("runner %q not present in registry, known runners: %v",
					runnerName, e.Registry.Names()),
			}
		}

		for _, bucket := range entry.Buckets {
			for _, conc := range concValues {
				diag.Candidates++
				c := compat.Candidate{
					Framework:      entry.Framework,
					Precision:      entry.Precision,
					Runner:         runner,
					Bucket:         bucket,
					TensorParallel: entry.TensorParallel,
					ExpertParallel: entry.ExpertParallel,
				}
				if !e.Rules.Allowed(c) {
					diag.countDenial(e.Rules.DenialReasons(c))
					continue
				}

				job, err := matrix.NewJobSpec(entry, runnerName, bucket, conc)
				if err != nil {
					return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
				}
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}

package sweep

import (
	"errors"
	"fmt"

	"github.com/perflab/benchmatrix/internal/compat"
	"github.com/perflab/benchmatrix/internal/matrix"
)

// smokeBucket is the workload shape used for smoke jobs: the cheapest
// canonical bucket.
var smokeBucket = matrix.SeqLenBucket{ISL: 1024, OSL: 1024}

// SmokeJobs emits one minimal job per entry that targets runnerType: the
// smoke bucket at the entry's lowest concurrency value (or concOverride
// when > 0). Used to verify that a runner type can run every
// configuration declared for it before committing to a full sweep.
//
// An unknown runner type is a referential error listing the valid types.
// Entries that do not declare the smoke bucket are skipped; denied
// combinations are counted in diag as usual.
func (e *Expander) SmokeJobs(entries []matrix.MasterConfigEntry, runnerType string, concOverride int, diag *Diagnostics) ([]matrix.JobSpec, error) {
	runner, ok := e.Registry[runnerType]
	if !ok {
		return nil, &ReferentialError{
			Code:     ErrUnknownRunner,
			EntryKey: runnerType,
			Message: fmt.Sprintf("runner type %q not present in registry, known runners: %v",
				runnerType, e.Registry.Names()),
		}
	}
	if diag == nil {
		diag = &Diagnostics{}
	}

	var jobs []matrix.JobSpec
	for _, entry := range entries {
		if !targetsRunner(entry, runnerType) {
			continue
		}
		if !declaresBucket(entry, smokeBucket) {
			continue
		}

		conc := concOverride
		if conc <= 0 {
			values, err := ExpandConcurrency(entry.Sweep)
			if err != nil {
				var rangeErr *SweepRangeError
				if errors.As(err, &rangeErr) {
					rangeErr.EntryKey = entry.Key
				}
				return nil, err
			}
			conc = values[0]
		}

		diag.Candidates++
		c := compat.Candidate{
			Framework:      entry.Framework,
			Precision:      entry.Precision,
			Runner:         runner,
			Bucket:         smokeBucket,
			TensorParallel: entry.TensorParallel,
			ExpertParallel: entry.ExpertParallel,
		}
		if !e.Rules.Allowed(c) {
			diag.countDenial(e.Rules.DenialReasons(c))
			continue
		}

		job, err := matrix.NewJobSpec(entry, runnerType, smokeBucket, conc)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		jobs = append(jobs, job)
	}
	diag.Emitted = len(jobs)
	return jobs, nil
}

func targetsRunner(entry matrix.MasterConfigEntry, runnerType string) bool {
	for _, r := range entry.Runners {
		if r == runnerType {
			return true
		}
	}
	return false
}

func declaresBucket(entry matrix.MasterConfigEntry, bucket matrix.SeqLenBucket) bool {
	for _, b := range entry.Buckets {
		if b == bucket {
			return true
		}
	}
	return false
}

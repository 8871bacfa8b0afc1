// Package compat holds the declarative compatibility table between
// frameworks, precisions, runners, and workload shapes. The table is
// static data, total over the enumeration domains: every combination the
// schema can produce resolves to a definite allow or deny, never unknown.
//
// A denial is an expected filtering outcome, not an error. Callers that
// need diagnostics use DenialReasons.
package compat

import (
	"fmt"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// Rules is one compatibility rule set. Tests construct restricted
// variants; production code uses Default().
type Rules struct {
	// FrameworkPrecisions is the complete framework x precision matrix.
	// Every (framework, precision) pair over the declared enums must be
	// present; CheckTotality enforces this.
	FrameworkPrecisions map[matrix.Framework]map[matrix.Precision]bool

	// MinAccelerators is the per-framework minimum accelerator count a
	// runner must provide. Evaluated before precision rules.
	MinAccelerators map[matrix.Framework]int

	// LegalBuckets is the set of workload shapes the matrix may sweep.
	LegalBuckets map[matrix.SeqLenBucket]bool
}

// Default returns the production rule set.
func Default() *Rules {
	return &Rules{
		FrameworkPrecisions: map[matrix.Framework]map[matrix.Precision]bool{
			matrix.FrameworkVLLM: {
				matrix.PrecisionFP4:  false,
				matrix.PrecisionFP8:  true,
				matrix.PrecisionFP16: true,
				matrix.PrecisionBF16: true,
			},
			matrix.FrameworkSGLang: {
				matrix.PrecisionFP4:  true,
				matrix.PrecisionFP8:  true,
				matrix.PrecisionFP16: false,
				matrix.PrecisionBF16: true,
			},
			matrix.FrameworkTRT: {
				matrix.PrecisionFP4:  true,
				matrix.PrecisionFP8:  true,
				matrix.PrecisionFP16: true,
				matrix.PrecisionBF16: false,
			},
		},
		MinAccelerators: map[matrix.Framework]int{
			matrix.FrameworkVLLM:   1,
			matrix.FrameworkSGLang: 1,
			matrix.FrameworkTRT:    1,
		},
		LegalBuckets: map[matrix.SeqLenBucket]bool{
			{ISL: 1024, OSL: 1024}: true,
			{ISL: 1024, OSL: 8192}: true,
			{ISL: 8192, OSL: 1024}: true,
		},
	}
}

// Candidate is one combination to check: the expander produces these
// before emitting JobSpecs.
type Candidate struct {
	Framework      matrix.Framework
	Precision      matrix.Precision
	Runner         matrix.RunnerDescriptor
	Bucket         matrix.SeqLenBucket
	TensorParallel int
	ExpertParallel int
}

// Allowed reports whether the candidate combination is valid.
// Equivalent to len(DenialReasons(c)) == 0 but cheaper: checks
// short-circuit in the same order, accelerator-count side conditions
// first.
func (r *Rules) Allowed(c Candidate) bool {
	if !c.Runner.SupportsFramework(c.Framework) {
		return false
	}
	if c.Runner.Accelerators < r.MinAccelerators[c.Framework] {
		return false
	}
	if c.TensorParallel > c.Runner.Accelerators {
		return false
	}
	if c.ExpertParallel > 1 && c.ExpertParallel > c.Runner.Accelerators {
		return false
	}
	if !r.FrameworkPrecisions[c.Framework][c.Precision] {
		return false
	}
	if !c.Runner.SupportsPrecision(c.Precision) {
		return false
	}
	return r.LegalBuckets[c.Bucket]
}

// DenialReasons returns every reason the candidate is denied, in rule
// evaluation order. Empty means allowed.
func (r *Rules) DenialReasons(c Candidate) []string {
	var reasons []string

	if !c.Runner.SupportsFramework(c.Framework) {
		reasons = append(reasons, fmt.Sprintf(
			"runner %s does not support framework %s", c.Runner.Name, c.Framework))
	}
	if min := r.MinAccelerators[c.Framework]; c.Runner.Accelerators < min {
		reasons = append(reasons, fmt.Sprintf(
			"framework %s requires at least %d accelerators, runner %s has %d",
			c.Framework, min, c.Runner.Name, c.Runner.Accelerators))
	}
	if c.TensorParallel > c.Runner.Accelerators {
		reasons = append(reasons, fmt.Sprintf(
			"tensor-parallel degree %d exceeds runner %s accelerator count %d",
			c.TensorParallel, c.Runner.Name, c.Runner.Accelerators))
	}
	if c.ExpertParallel > 1 && c.ExpertParallel > c.Runner.Accelerators {
		reasons = append(reasons, fmt.Sprintf(
			"expert-parallel degree %d exceeds runner %s accelerator count %d",
			c.ExpertParallel, c.Runner.Name, c.Runner.Accelerators))
	}
	if !r.FrameworkPrecisions[c.Framework][c.Precision] {
		reasons = append(reasons, fmt.Sprintf(
			"framework %s does not support precision %s", c.Framework, c.Precision))
	}
	if !c.Runner.SupportsPrecision(c.Precision) {
		reasons = append(reasons, fmt.Sprintf(
			"runner %s does not support precision %s", c.Runner.Name, c.Precision))
	}
	if !r.LegalBuckets[c.Bucket] {
		reasons = append(reasons, fmt.Sprintf(
			"sequence-length bucket %s is not in the legal bucket set", c.Bucket.Name()))
	}
	return reasons
}

// CheckTotality verifies the rule set is exhaustively defined over the
// declared enumeration domains. Called once at startup; a failure is a
// programming error in the table, not bad user input.
func (r *Rules) CheckTotality() error {
	for _, f := range matrix.Frameworks {
		precs, ok := r.FrameworkPrecisions[f]
		if !ok {
			return fmt.Errorf("compatibility table missing framework %s", f)
		}
		for _, p := range matrix.Precisions {
			if _, ok := precs[p]; !ok {
				return fmt.Errorf("compatibility table missing (%s, %s)", f, p)
			}
		}
		if _, ok := r.MinAccelerators[f]; !ok {
			return fmt.Errorf("minimum accelerator table missing framework %s", f)
		}
	}
	if len(r.LegalBuckets) == 0 {
		return fmt.Errorf("legal bucket set is empty")
	}
	return nil
}

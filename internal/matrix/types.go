package matrix

import (
	"fmt"
	"sort"
)

// Precision is a numeric precision the benchmark matrix recognizes.
type Precision string

// Recognized precisions.
const (
	PrecisionFP4  Precision = "fp4"
	PrecisionFP8  Precision = "fp8"
	PrecisionFP16 Precision = "fp16"
	PrecisionBF16 Precision = "bf16"
)

// Precisions lists all recognized precisions in a fixed order.
// Exhaustiveness checks over the compatibility table iterate this slice.
var Precisions = []Precision{PrecisionFP4, PrecisionFP8, PrecisionFP16, PrecisionBF16}

// ParsePrecision converts an external string to a Precision.
func ParsePrecision(s string) (Precision, error) {
	for _, p := range Precisions {
		if s == string(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown precision %q", s)
}

// Framework is an inference framework the benchmark matrix recognizes.
type Framework string

// Recognized inference frameworks.
const (
	FrameworkVLLM   Framework = "vllm"
	FrameworkSGLang Framework = "sglang"
	FrameworkTRT    Framework = "trt"
)

// Frameworks lists all recognized frameworks in a fixed order.
var Frameworks = []Framework{FrameworkVLLM, FrameworkSGLang, FrameworkTRT}

// ParseFramework converts an external string to a Framework.
func ParseFramework(s string) (Framework, error) {
	for _, f := range Frameworks {
		if s == string(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown framework %q", s)
}

// SeqLenBucket is one workload shape: input and output sequence lengths.
type SeqLenBucket struct {
	ISL int `json:"isl" yaml:"isl"`
	OSL int `json:"osl" yaml:"osl"`
}

// NamedBuckets maps short bucket names to their (ISL, OSL) pairs.
// These are the canonical workload shapes of the benchmarking matrix.
var NamedBuckets = map[string]SeqLenBucket{
	"1k1k": {ISL: 1024, OSL: 1024},
	"1k8k": {ISL: 1024, OSL: 8192},
	"8k1k": {ISL: 8192, OSL: 1024},
}

// bucketNames is the reverse of NamedBuckets for slug/exp-name generation.
var bucketNames = func() map[SeqLenBucket]string {
	m := make(map[SeqLenBucket]string, len(NamedBuckets))
	for name, b := range NamedBuckets {
		m[b] = name
	}
	return m
}()

// Name returns the short bucket name (e.g. "1k1k") when the bucket is one
// of the canonical shapes, otherwise "<isl>_<osl>".
func (b SeqLenBucket) Name() string {
	if name, ok := bucketNames[b]; ok {
		return name
	}
	return fmt.Sprintf("%d_%d", b.ISL, b.OSL)
}

// SweepMode selects the growth rule of a concurrency sweep.
type SweepMode string

// Sweep growth rules.
const (
	SweepAdditive       SweepMode = "additive"
	SweepMultiplicative SweepMode = "multiplicative"
)

// ParseSweepMode converts an external string to a SweepMode.
func ParseSweepMode(s string) (SweepMode, error) {
	switch SweepMode(s) {
	case SweepAdditive, SweepMultiplicative:
		return SweepMode(s), nil
	}
	return "", fmt.Errorf("unknown sweep mode %q", s)
}

// ConcurrencySweepSpec declares a range of concurrency values to expand
// into discrete test points.
//
// Invariants (enforced by the expander, not the constructor): Start >= 1,
// End >= Start, Step >= 1 in additive mode and Step > 1 in multiplicative
// mode. The expansion is finite and strictly increasing.
type ConcurrencySweepSpec struct {
	Start int       `json:"conc_start"`
	End   int       `json:"conc_end"`
	Step  float64   `json:"conc_step"`
	Mode  SweepMode `json:"conc_mode"`
}

// MasterConfigEntry is one declared benchmark intent, validated and frozen
// at load time. Runners and Buckets preserve declaration order; expansion
// ordering depends on it.
type MasterConfigEntry struct {
	// Key is the entry's identity for error reporting: the top-level
	// model-prefix key plus the entry's index, e.g. "dsr1[0]".
	Key string `json:"key"`

	Model          string               `json:"model"`
	ModelPrefix    string               `json:"model_prefix"`
	Precision      Precision            `json:"precision"`
	Framework      Framework            `json:"framework"`
	Runners        []string             `json:"runners"`
	Buckets        []SeqLenBucket       `json:"seq_lens"`
	Sweep          ConcurrencySweepSpec `json:"sweep"`
	TensorParallel int                  `json:"tensor_parallel"`
	ExpertParallel int                  `json:"expert_parallel"`
}

// RunnerDescriptor is a hardware runner capability record from the runner
// registry. Read-only reference data shared across a generation run.
type RunnerDescriptor struct {
	Name         string      `json:"name"`
	Accelerators int         `json:"accelerators"`
	Frameworks   []Framework `json:"frameworks"`
	Precisions   []Precision `json:"precisions"`
}

// SupportsFramework reports whether the runner declares framework support.
func (r RunnerDescriptor) SupportsFramework(f Framework) bool {
	for _, have := range r.Frameworks {
		if have == f {
			return true
		}
	}
	return false
}

// SupportsPrecision reports whether the runner declares precision support.
func (r RunnerDescriptor) SupportsPrecision(p Precision) bool {
	for _, have := range r.Precisions {
		if have == p {
			return true
		}
	}
	return false
}

// RunnerRegistry maps runner names to their capability descriptors.
type RunnerRegistry map[string]RunnerDescriptor

// Names returns the registry's runner names sorted lexically.
func (rr RunnerRegistry) Names() []string {
	names := make([]string, 0, len(rr))
	for name := range rr {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// maxModelLenMargin is the token headroom added on top of ISL+OSL when
// deriving the server's max model length for a job.
const maxModelLenMargin = 200

// JobSpec is one fully resolved benchmark job: the unit a CI matrix or
// SLURM launcher consumes. Immutable output value.
type JobSpec struct {
	Model          string    `json:"model" csv:"model"`
	ModelPrefix    string    `json:"model_prefix" csv:"model_prefix"`
	Precision      Precision `json:"precision" csv:"precision"`
	Framework      Framework `json:"framework" csv:"framework"`
	Runner         string    `json:"runner" csv:"runner"`
	ISL            int       `json:"isl" csv:"isl"`
	OSL            int       `json:"osl" csv:"osl"`
	TensorParallel int       `json:"tensor_parallel" csv:"tensor_parallel"`
	ExpertParallel int       `json:"expert_parallel" csv:"expert_parallel"`
	Concurrency    int       `json:"concurrency" csv:"concurrency"`
	MaxModelLen    int       `json:"max_model_len" csv:"max_model_len"`
	ExpName        string    `json:"exp_name" csv:"exp_name"`
	Slug           string    `json:"slug" csv:"slug"`
}

// Bucket returns the job's workload shape.
func (j JobSpec) Bucket() SeqLenBucket {
	return SeqLenBucket{ISL: j.ISL, OSL: j.OSL}
}

// NewJobSpec resolves one (entry, runner, bucket, concurrency) combination
// into a JobSpec with a derived slug. Returns an error only if the field
// tuple cannot be canonically marshaled, which indicates a bug rather than
// bad input.
func NewJobSpec(entry MasterConfigEntry, runner string, bucket SeqLenBucket, concurrency int) (JobSpec, error) {
	j := JobSpec{
		Model:          entry.Model,
		ModelPrefix:    entry.ModelPrefix,
		Precision:      entry.Precision,
		Framework:      entry.Framework,
		Runner:         runner,
		ISL:            bucket.ISL,
		OSL:            bucket.OSL,
		TensorParallel: entry.TensorParallel,
		ExpertParallel: entry.ExpertParallel,
		Concurrency:    concurrency,
		MaxModelLen:    bucket.ISL + bucket.OSL + maxModelLenMargin,
		ExpName:        fmt.Sprintf("%s_%s", entry.ModelPrefix, bucket.Name()),
	}

	slug, err := j.computeSlug()
	if err != nil {
		return JobSpec{}, err
	}
	j.Slug = slug
	return j, nil
}

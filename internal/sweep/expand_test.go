package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflab/benchmatrix/internal/compat"
	"github.com/perflab/benchmatrix/internal/matrix"
)

func testRegistry() matrix.RunnerRegistry {
	return matrix.RunnerRegistry{
		"h100x8": {
			Name:         "h100x8",
			Accelerators: 8,
			Frameworks:   []matrix.Framework{matrix.FrameworkVLLM, matrix.FrameworkSGLang, matrix.FrameworkTRT},
			Precisions:   []matrix.Precision{matrix.PrecisionFP4, matrix.PrecisionFP8, matrix.PrecisionFP16, matrix.PrecisionBF16},
		},
		"mi300x8": {
			Name:         "mi300x8",
			Accelerators: 8,
			Frameworks:   []matrix.Framework{matrix.FrameworkVLLM, matrix.FrameworkSGLang},
			Precisions:   []matrix.Precision{matrix.PrecisionFP8, matrix.PrecisionFP16, matrix.PrecisionBF16},
		},
		"l40x1": {
			Name:         "l40x1",
			Accelerators: 1,
			Frameworks:   []matrix.Framework{matrix.FrameworkVLLM},
			Precisions:   []matrix.Precision{matrix.PrecisionFP8, matrix.PrecisionBF16},
		},
	}
}

func testEntry() matrix.MasterConfigEntry {
	return matrix.MasterConfigEntry{
		Key:         "dsr1[0]",
		Model:       "org/dsr1-base",
		ModelPrefix: "dsr1",
		Precision:   matrix.PrecisionFP8,
		Framework:   matrix.FrameworkVLLM,
		Runners:     []string{"h100x8", "mi300x8"},
		Buckets: []matrix.SeqLenBucket{
			{ISL: 1024, OSL: 1024},
			{ISL: 8192, OSL: 1024},
		},
		Sweep: matrix.ConcurrencySweepSpec{
			Start: 4, End: 16, Step: 2, Mode: matrix.SweepMultiplicative,
		},
		TensorParallel: 8,
		ExpertParallel: 1,
	}
}

func newTestExpander(t *testing.T) *Expander {
	t.Helper()
	e, err := NewExpander(testRegistry(), compat.Default())
	require.NoError(t, err)
	return e
}

func TestExpandOrdering(t *testing.T) {
	e := newTestExpander(t)

	var diag Diagnostics
	jobs, err := e.Expand([]matrix.MasterConfigEntry{testEntry()}, &diag)
	require.NoError(t, err)

	// 2 runners x 2 buckets x 3 concurrency values, all allowed.
	require.Len(t, jobs, 12)
	assert.Equal(t, 12, diag.Candidates)
	assert.Equal(t, 12, diag.Emitted)
	assert.Equal(t, 0, diag.Denied)

	// Runners in declaration order, buckets in declaration order within a
	// runner, concurrency increasing within a bucket.
	type key struct {
		runner string
		isl    int
		conc   int
	}
	var got []key
	for _, j := range jobs {
		got = append(got, key{j.Runner, j.ISL, j.Concurrency})
	}
	want := []key{
		{"h100x8", 1024, 4}, {"h100x8", 1024, 8}, {"h100x8", 1024, 16},
		{"h100x8", 8192, 4}, {"h100x8", 8192, 8}, {"h100x8", 8192, 16},
		{"mi300x8", 1024, 4}, {"mi300x8", 1024, 8}, {"mi300x8", 1024, 16},
		{"mi300x8", 8192, 4}, {"mi300x8", 8192, 8}, {"mi300x8", 8192, 16},
	}
	assert.Equal(t, want, got)
}

func TestExpandDeterminism(t *testing.T) {
	e := newTestExpander(t)
	entries := []matrix.MasterConfigEntry{testEntry()}

	first, err := e.Expand(entries, nil)
	require.NoError(t, err)
	second, err := e.Expand(entries, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExpandCountsDenials(t *testing.T) {
	e := newTestExpander(t)

	// fp4 on vllm is denied by the framework-precision table; mi300x8
	// additionally lacks fp4 support. Denials filter, they do not fail.
	entry := testEntry()
	entry.Precision = matrix.PrecisionFP4

	var diag Diagnostics
	jobs, err := e.Expand([]matrix.MasterConfigEntry{entry}, &diag)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 12, diag.Candidates)
	assert.Equal(t, 12, diag.Denied)
	assert.Equal(t, 0, diag.Emitted)
	assert.Equal(t, 12, diag.DenialReasons["framework vllm does not support precision fp4"])
	assert.Equal(t, 6, diag.DenialReasons["runner mi300x8 does not support precision fp4"])
}

func TestExpandTensorParallelDenied(t *testing.T) {
	e := newTestExpander(t)

	entry := testEntry()
	entry.Runners = []string{"l40x1"}
	entry.TensorParallel = 8

	var diag Diagnostics
	jobs, err := e.Expand([]matrix.MasterConfigEntry{entry}, &diag)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 6, diag.Denied)
}

func TestExpandUnknownRunner(t *testing.T) {
	e := newTestExpander(t)

	entry := testEntry()
	entry.Runners = []string{"h100x8", "gb200x72"}

	_, err := e.Expand([]matrix.MasterConfigEntry{entry}, nil)
	require.Error(t, err)

	var refErr *ReferentialError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, ErrUnknownRunner, refErr.Code)
	assert.Equal(t, "dsr1[0]", refErr.EntryKey)
	assert.Contains(t, refErr.Message, "gb200x72")
	assert.Contains(t, refErr.Message, "h100x8")
}

func TestExpandBadSweepCarriesEntryKey(t *testing.T) {
	e := newTestExpander(t)

	entry := testEntry()
	entry.Sweep.End = 1

	_, err := e.Expand([]matrix.MasterConfigEntry{entry}, nil)
	require.Error(t, err)

	var rangeErr *SweepRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, ErrSweepEndBeforeStart, rangeErr.Code)
	assert.Equal(t, "dsr1[0]", rangeErr.EntryKey)
}

func TestExpandMultipleEntriesPreserveOrder(t *testing.T) {
	e := newTestExpander(t)

	first := testEntry()
	second := testEntry()
	second.Key = "qwen[0]"
	second.Model = "org/qwen-72b"
	second.ModelPrefix = "qwen"
	second.Runners = []string{"l40x1"}
	second.Buckets = []matrix.SeqLenBucket{{ISL: 1024, OSL: 1024}}
	second.TensorParallel = 1

	jobs, err := e.Expand([]matrix.MasterConfigEntry{first, second}, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 15)
	assert.Equal(t, "dsr1", jobs[0].ModelPrefix)
	assert.Equal(t, "qwen", jobs[12].ModelPrefix)
	assert.Equal(t, "l40x1", jobs[14].Runner)
}

func TestSmokeJobs(t *testing.T) {
	e := newTestExpander(t)

	entries := []matrix.MasterConfigEntry{testEntry()}

	var diag Diagnostics
	jobs, err := e.SmokeJobs(entries, "h100x8", 0, &diag)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "h100x8", jobs[0].Runner)
	assert.Equal(t, 1024, jobs[0].ISL)
	assert.Equal(t, 1024, jobs[0].OSL)
	assert.Equal(t, 4, jobs[0].Concurrency)
}

func TestSmokeJobsConcurrencyOverride(t *testing.T) {
	e := newTestExpander(t)

	jobs, err := e.SmokeJobs([]matrix.MasterConfigEntry{testEntry()}, "mi300x8", 32, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 32, jobs[0].Concurrency)
}

func TestSmokeJobsSkipsNonTargetingEntries(t *testing.T) {
	e := newTestExpander(t)

	entry := testEntry()
	entry.Runners = []string{"mi300x8"}

	jobs, err := e.SmokeJobs([]matrix.MasterConfigEntry{entry}, "h100x8", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSmokeJobsUnknownRunnerType(t *testing.T) {
	e := newTestExpander(t)

	_, err := e.SmokeJobs([]matrix.MasterConfigEntry{testEntry()}, "tpu-v5", 0, nil)
	require.Error(t, err)

	var refErr *ReferentialError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, ErrUnknownRunner, refErr.Code)
}

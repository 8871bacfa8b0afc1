package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflab/benchmatrix/internal/matrix"
)

func filterJobs() []matrix.JobSpec {
	return []matrix.JobSpec{
		{ModelPrefix: "dsr1", Framework: matrix.FrameworkVLLM, Precision: matrix.PrecisionFP8, Runner: "h100x8"},
		{ModelPrefix: "dsr1-distill", Framework: matrix.FrameworkSGLang, Precision: matrix.PrecisionFP8, Runner: "mi300x8"},
		{ModelPrefix: "qwen", Framework: matrix.FrameworkVLLM, Precision: matrix.PrecisionBF16, Runner: "h100x8"},
		{ModelPrefix: "llama", Framework: matrix.FrameworkTRT, Precision: matrix.PrecisionFP4, Runner: "gb200x4"},
	}
}

func mustFilter(t *testing.T, field, value string) Filter {
	t.Helper()
	f, err := NewFilter(field, value)
	require.NoError(t, err)
	return f
}

func TestNewFilterRejectsUnknownField(t *testing.T) {
	_, err := NewFilter("accelerator", "h100")
	require.Error(t, err)

	var filterErr *FilterError
	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, ErrUnknownFilterField, filterErr.Code)
	assert.Equal(t, "accelerator", filterErr.Field)
}

func TestApplyModelPrefixMatch(t *testing.T) {
	// The model filter is a prefix match: "dsr" selects dsr1 and
	// dsr1-distill alike.
	got := Apply(filterJobs(), []Filter{mustFilter(t, FilterModel, "dsr")})
	require.Len(t, got, 2)
	assert.Equal(t, "dsr1", got[0].ModelPrefix)
	assert.Equal(t, "dsr1-distill", got[1].ModelPrefix)
}

func TestApplyEqualityFields(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"framework", mustFilter(t, FilterFramework, "vllm"), []string{"dsr1", "qwen"}},
		{"precision", mustFilter(t, FilterPrecision, "fp8"), []string{"dsr1", "dsr1-distill"}},
		{"runner", mustFilter(t, FilterRunner, "h100x8"), []string{"dsr1", "qwen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(filterJobs(), []Filter{tt.filter})
			var prefixes []string
			for _, j := range got {
				prefixes = append(prefixes, j.ModelPrefix)
			}
			assert.Equal(t, tt.want, prefixes)
		})
	}
}

func TestApplyConjunction(t *testing.T) {
	got := Apply(filterJobs(), []Filter{
		mustFilter(t, FilterFramework, "vllm"),
		mustFilter(t, FilterPrecision, "fp8"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "dsr1", got[0].ModelPrefix)
}

func TestApplyEmptyIsIdentity(t *testing.T) {
	jobs := filterJobs()
	assert.Equal(t, jobs, Apply(jobs, nil))
}

func TestApplyNoMatchesYieldsEmpty(t *testing.T) {
	got := Apply(filterJobs(), []Filter{mustFilter(t, FilterRunner, "cpu-only")})
	assert.Empty(t, got)
}

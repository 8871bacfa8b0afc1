package sweep

import (
	"strings"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// Filterable field names. The model filter matches by model-prefix prefix
// (so "dsr" selects dsr1, dsr1-distill, ...); the rest match by equality.
const (
	FilterModel     = "model"
	FilterFramework = "framework"
	FilterPrecision = "precision"
	FilterRunner    = "runner"
)

// Filter is one (field-name, accepted-value) narrowing supplied by the
// invoker.
type Filter struct {
	Field string
	Value string
}

// NewFilter validates the field name at construction time: an unknown
// field name is a configuration error before any expansion occurs.
func NewFilter(field, value string) (Filter, error) {
	switch field {
	case FilterModel, FilterFramework, FilterPrecision, FilterRunner:
		return Filter{Field: field, Value: value}, nil
	}
	return Filter{}, &FilterError{
		Code:    ErrUnknownFilterField,
		Field:   field,
		Message: "unknown filter field, must be one of model, framework, precision, runner",
	}
}

// matches reports whether the job passes this one filter.
func (f Filter) matches(j matrix.JobSpec) bool {
	switch f.Field {
	case FilterModel:
		return strings.HasPrefix(j.ModelPrefix, f.Value)
	case FilterFramework:
		return string(j.Framework) == f.Value
	case FilterPrecision:
		return string(j.Precision) == f.Value
	case FilterRunner:
		return j.Runner == f.Value
	}
	return false
}

// Apply narrows jobs to those matching every filter (logical AND),
// preserving their relative order. An empty filter set is the identity
// transform.
func Apply(jobs []matrix.JobSpec, filters []Filter) []matrix.JobSpec {
	if len(filters) == 0 {
		return jobs
	}

	out := make([]matrix.JobSpec, 0, len(jobs))
	for _, j := range jobs {
		keep := true
		for _, f := range filters {
			if !f.matches(j) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, j)
		}
	}
	return out
}

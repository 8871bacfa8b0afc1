package sweep

import (
	"fmt"
	"math"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// ExpandConcurrency turns a sweep descriptor into its discrete concurrency
// values: additive mode yields start, start+step, ... while <= end;
// multiplicative mode yields start, start*step, start*step^2, ... while
// <= end. The result is finite and strictly increasing.
//
// Non-integer intermediate values are rounded half-up to the nearest
// integer >= 1; consecutive duplicates produced by rounding collapse to
// one value rather than erroring.
func ExpandConcurrency(spec matrix.ConcurrencySweepSpec) ([]int, error) {
	if spec.Start < 1 {
		return nil, &SweepRangeError{
			Code:    ErrSweepBadStart,
			Message: fmt.Sprintf("conc-start must be >= 1, got %d", spec.Start),
		}
	}
	if spec.End < spec.Start {
		return nil, &SweepRangeError{
			Code:    ErrSweepEndBeforeStart,
			Message: fmt.Sprintf("conc-end %d is less than conc-start %d", spec.End, spec.Start),
		}
	}
	switch spec.Mode {
	case matrix.SweepAdditive:
		if spec.Step < 1 {
			return nil, &SweepRangeError{
				Code:    ErrSweepBadStep,
				Message: fmt.Sprintf("additive sweep requires step >= 1, got %g", spec.Step),
			}
		}
	case matrix.SweepMultiplicative:
		if spec.Step <= 1 {
			return nil, &SweepRangeError{
				Code:    ErrSweepBadStep,
				Message: fmt.Sprintf("multiplicative sweep requires step > 1, got %g", spec.Step),
			}
		}
	default:
		return nil, &SweepRangeError{
			Code:    ErrSweepBadStep,
			Message: fmt.Sprintf("unknown sweep mode %q", spec.Mode),
		}
	}

	var values []int
	raw := float64(spec.Start)
	for {
		v := roundConcurrency(raw)
		if v > spec.End {
			break
		}
		if n := len(values); n == 0 || values[n-1] != v {
			values = append(values, v)
		}
		if spec.Mode == matrix.SweepAdditive {
			raw += spec.Step
		} else {
			raw *= spec.Step
		}
	}
	return values, nil
}

// roundConcurrency rounds half-up to the nearest integer, with a floor of
// one: concurrency values below 1 are meaningless.
func roundConcurrency(x float64) int {
	v := int(math.Floor(x + 0.5))
	if v < 1 {
		return 1
	}
	return v
}

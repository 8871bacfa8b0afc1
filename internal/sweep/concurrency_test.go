package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflab/benchmatrix/internal/matrix"
)

func TestExpandConcurrency(t *testing.T) {
	tests := []struct {
		name string
		spec matrix.ConcurrencySweepSpec
		want []int
	}{
		{
			name: "additive full range",
			spec: matrix.ConcurrencySweepSpec{Start: 4, End: 64, Step: 4, Mode: matrix.SweepAdditive},
			want: []int{4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44, 48, 52, 56, 60, 64},
		},
		{
			name: "multiplicative doubling",
			spec: matrix.ConcurrencySweepSpec{Start: 4, End: 64, Step: 2, Mode: matrix.SweepMultiplicative},
			want: []int{4, 8, 16, 32, 64},
		},
		{
			name: "multiplicative stops below end when next value overshoots",
			spec: matrix.ConcurrencySweepSpec{Start: 4, End: 100, Step: 2, Mode: matrix.SweepMultiplicative},
			want: []int{4, 8, 16, 32, 64},
		},
		{
			name: "single point when start equals end",
			spec: matrix.ConcurrencySweepSpec{Start: 16, End: 16, Step: 2, Mode: matrix.SweepMultiplicative},
			want: []int{16},
		},
		{
			name: "additive overshoot excluded",
			spec: matrix.ConcurrencySweepSpec{Start: 1, End: 10, Step: 4, Mode: matrix.SweepAdditive},
			want: []int{1, 5, 9},
		},
		{
			name: "fractional multiplicative step rounds half-up",
			spec: matrix.ConcurrencySweepSpec{Start: 2, End: 12, Step: 1.5, Mode: matrix.SweepMultiplicative},
			want: []int{2, 3, 5, 7, 10},
		},
		{
			name: "rounding duplicates collapse",
			spec: matrix.ConcurrencySweepSpec{Start: 1, End: 4, Step: 1.2, Mode: matrix.SweepMultiplicative},
			// 1, 1.2, 1.44, 1.728, 2.07.. round to 1, 1, 1, 2, 2, ...
			want: []int{1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandConcurrency(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandConcurrencyErrors(t *testing.T) {
	tests := []struct {
		name     string
		spec     matrix.ConcurrencySweepSpec
		wantCode string
	}{
		{
			name:     "start below one",
			spec:     matrix.ConcurrencySweepSpec{Start: 0, End: 8, Step: 2, Mode: matrix.SweepMultiplicative},
			wantCode: ErrSweepBadStart,
		},
		{
			name:     "end before start",
			spec:     matrix.ConcurrencySweepSpec{Start: 8, End: 4, Step: 2, Mode: matrix.SweepMultiplicative},
			wantCode: ErrSweepEndBeforeStart,
		},
		{
			name:     "multiplicative step of one never terminates",
			spec:     matrix.ConcurrencySweepSpec{Start: 4, End: 64, Step: 1, Mode: matrix.SweepMultiplicative},
			wantCode: ErrSweepBadStep,
		},
		{
			name:     "multiplicative step below one",
			spec:     matrix.ConcurrencySweepSpec{Start: 4, End: 64, Step: 0.5, Mode: matrix.SweepMultiplicative},
			wantCode: ErrSweepBadStep,
		},
		{
			name:     "additive step below one",
			spec:     matrix.ConcurrencySweepSpec{Start: 4, End: 64, Step: 0.5, Mode: matrix.SweepAdditive},
			wantCode: ErrSweepBadStep,
		},
		{
			name:     "unknown mode",
			spec:     matrix.ConcurrencySweepSpec{Start: 4, End: 64, Step: 2, Mode: "geometric"},
			wantCode: ErrSweepBadStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandConcurrency(tt.spec)
			require.Error(t, err)

			var rangeErr *SweepRangeError
			require.ErrorAs(t, err, &rangeErr)
			assert.Equal(t, tt.wantCode, rangeErr.Code)
		})
	}
}

func TestExpandConcurrencyStrictlyIncreasing(t *testing.T) {
	specs := []matrix.ConcurrencySweepSpec{
		{Start: 1, End: 1000, Step: 1.1, Mode: matrix.SweepMultiplicative},
		{Start: 3, End: 97, Step: 7, Mode: matrix.SweepAdditive},
		{Start: 1, End: 512, Step: 2, Mode: matrix.SweepMultiplicative},
	}
	for _, spec := range specs {
		values, err := ExpandConcurrency(spec)
		require.NoError(t, err)
		require.NotEmpty(t, values)
		assert.GreaterOrEqual(t, values[0], spec.Start)
		for i := 1; i < len(values); i++ {
			assert.Greater(t, values[i], values[i-1])
		}
		assert.LessOrEqual(t, values[len(values)-1], spec.End)
	}
}

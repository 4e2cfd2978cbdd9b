package minlsh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrate_AgreesWithMidpointRule(t *testing.T) {
	cases := []struct {
		name string
		f    func(float64) float64
		a, b float64
	}{
		{name: "constant", f: func(float64) float64 { return 1 }, a: 0, b: 1},
		{name: "linear", f: func(x float64) float64 { return x }, a: 0, b: 1},
		{name: "collision curve", f: func(s float64) float64 {
			return 1 - math.Pow(1-math.Pow(s, 4), 8)
		}, a: 0, b: 0.9},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := integrate(tc.f, tc.a, tc.b)
			want := riemann(tc.f, tc.a, tc.b)
			assert.InDelta(t, want, got, 1e-3)
		})
	}
}

func TestIntegrate_EmptyInterval(t *testing.T) {
	assert.Zero(t, integrate(func(float64) float64 { return 1 }, 0.5, 0.5))
	assert.Zero(t, integrate(func(float64) float64 { return 1 }, 0.9, 0.1))
}

func TestProbabilities_Bounds(t *testing.T) {
	for _, threshold := range []float64{0.1, 0.5, 0.9} {
		fp := falsePositiveProbability(threshold, 8, 4)
		fn := falseNegativeProbability(threshold, 8, 4)

		// Each integrand is a probability, so the integral is bounded by
		// the interval length.
		assert.GreaterOrEqual(t, fp, 0.0)
		assert.LessOrEqual(t, fp, threshold+1e-9)
		assert.GreaterOrEqual(t, fn, 0.0)
		assert.LessOrEqual(t, fn, 1-threshold+1e-9)
	}
}

func TestOptimalParams_FitsPermutations(t *testing.T) {
	for _, numPerm := range []int{2, 16, 128, 256} {
		for _, threshold := range []float64{0.1, 0.5, 0.9} {
			b, r := optimalParams(threshold, numPerm, 0.5, 0.5)

			require.GreaterOrEqual(t, b, 1)
			require.GreaterOrEqual(t, r, 1)
			require.LessOrEqual(t, b*r, numPerm)
		}
	}
}

func TestOptimalParams_Deterministic(t *testing.T) {
	// The per-band columns are computed concurrently; the reduction must
	// still produce a stable result.
	b0, r0 := optimalParams(0.8, 128, 0.5, 0.5)
	for range 5 {
		b, r := optimalParams(0.8, 128, 0.5, 0.5)
		assert.Equal(t, b0, b)
		assert.Equal(t, r0, r)
	}
}

func TestOptimalParams_WeightsShiftBalance(t *testing.T) {
	// Weighting false negatives harder must not yield a worse false
	// negative probability than the neutral weighting.
	bn, rn := optimalParams(0.5, 128, 0.5, 0.5)
	bf, rf := optimalParams(0.5, 128, 0.1, 0.9)

	fnNeutral := falseNegativeProbability(0.5, bn, rn)
	fnRecall := falseNegativeProbability(0.5, bf, rf)
	assert.LessOrEqual(t, fnRecall, fnNeutral+1e-12)
}

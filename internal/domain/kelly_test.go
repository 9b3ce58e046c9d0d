package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKelly_NoEdge_ZeroFraction(t *testing.T) {
	// modelProb <= implícita → fracción 0, nunca negativa
	assert.Equal(t, 0.0, Kelly(0.5, 100).Fraction)
	assert.Equal(t, 0.0, Kelly(0.4, 100).Fraction)
	assert.Equal(t, 0.0, Kelly(0.55, -150).Fraction) // implied 0.6
}

func TestKelly_PositiveEdge(t *testing.T) {
	k := Kelly(0.55, 100)
	assert.InDelta(t, 0.10, k.Fraction, 0.02)
	assert.InDelta(t, 0.05, k.Edge, 0.0001)
	assert.Greater(t, k.ExpectedGrowth, 0.0)
}

func TestKelly_IncreasingInEdge(t *testing.T) {
	prev := 0.0
	for _, p := range []float64{0.51, 0.55, 0.60, 0.70, 0.80} {
		f := Kelly(p, 100).Fraction
		assert.Greater(t, f, prev, "p=%v", p)
		prev = f
	}
}

func TestKelly_NaNProbability_Zero(t *testing.T) {
	k := Kelly(math.NaN(), 100)
	assert.Equal(t, 0.0, k.Fraction)
}

func TestKellyResult_Adjusted_ExactMultiple(t *testing.T) {
	k := Kelly(0.6, 100)
	for _, m := range []float64{0, 0.1, 0.25, 0.5, 0.8, 1} {
		assert.InDelta(t, k.Fraction*m, k.Adjusted(m), 1e-12, "multiplier %v", m)
	}
	// multiplicadores fuera de [0,1] clampan
	assert.Equal(t, k.Fraction, k.Adjusted(1.5))
	assert.Equal(t, 0.0, k.Adjusted(-0.5))
}

func TestKellyResult_FractionalTransforms(t *testing.T) {
	k := Kelly(0.6, 100)
	assert.InDelta(t, k.Fraction/2, k.HalfKelly(), 1e-12)
	assert.InDelta(t, k.Fraction/4, k.QuarterKelly(), 1e-12)
}

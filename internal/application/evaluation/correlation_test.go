package evaluation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordPairs(e *CorrelationEstimator, tt, ff, tf, ft int) {
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	add := func(count int, a, b bool) {
		for i := 0; i < count; i++ {
			e.RecordGameOutcomes(fmt.Sprintf("g%d", n), map[string]bool{
				"moneyline": a,
				"total":     b,
			}, day.AddDate(0, 0, n))
			n++
		}
	}
	add(tt, true, true)
	add(ff, false, false)
	add(tf, true, false)
	add(ft, false, true)
}

func TestCorrelation_InsufficientSamples(t *testing.T) {
	e := NewCorrelationEstimator()
	recordPairs(e, 10, 10, 0, 0)

	est := e.Estimate("moneyline", "total")
	assert.Equal(t, 0.0, est.Correlation)
	assert.Equal(t, 0.0, est.TrustLevel)
	assert.False(t, est.Significant)
	assert.Equal(t, 20, est.SampleSize)

	// la fuente ponderada por confianza colapsa a independencia
	assert.Equal(t, 0.0, e.Correlation("moneyline", "total"))
}

func TestCorrelation_StrongPositivePair(t *testing.T) {
	e := NewCorrelationEstimator()
	// 90 de 100 juegos coinciden en resultado
	recordPairs(e, 50, 40, 5, 5)

	est := e.Estimate("moneyline", "total")
	assert.InDelta(t, 0.80, est.Correlation, 0.02)
	assert.True(t, est.Significant)
	assert.Equal(t, 0.70, est.TrustLevel) // n=100 y significativa
	assert.Less(t, est.CILow, est.Correlation)
	assert.Greater(t, est.CIHigh, est.Correlation)

	weighted := e.Correlation("moneyline", "total")
	assert.InDelta(t, est.TrustLevel*est.Correlation, weighted, 1e-12)
}

func TestCorrelation_IndependentPair(t *testing.T) {
	e := NewCorrelationEstimator()
	recordPairs(e, 25, 25, 25, 25)

	est := e.Estimate("moneyline", "total")
	assert.InDelta(t, 0.0, est.Correlation, 0.001)
	assert.False(t, est.Significant)
	assert.Equal(t, 0.50, est.TrustLevel) // muestra grande sin señal
}

func TestCorrelation_DegenerateSeries(t *testing.T) {
	e := NewCorrelationEstimator()
	recordPairs(e, 60, 0, 0, 0) // "total" siempre gana: sin varianza

	est := e.Estimate("moneyline", "total")
	assert.Equal(t, 0.0, est.Correlation)
	assert.Equal(t, 0.3, est.TrustLevel)
}

func TestCorrelation_SymmetricAndCached(t *testing.T) {
	e := NewCorrelationEstimator()
	recordPairs(e, 50, 40, 5, 5)

	ab := e.Estimate("moneyline", "total")
	ba := e.Estimate("total", "moneyline")
	assert.Equal(t, ab, ba)
}

func TestCorrelation_Matrix(t *testing.T) {
	e := NewCorrelationEstimator()
	recordPairs(e, 50, 40, 5, 5)

	corr, trust := e.Matrix([]string{"moneyline", "total"})
	assert.Equal(t, 1.0, corr.At(0, 0))
	assert.Equal(t, corr.At(0, 1), corr.At(1, 0))
	assert.InDelta(t, 0.80, corr.At(0, 1), 0.02)
	assert.Equal(t, 0.70, trust.At(0, 1))
}

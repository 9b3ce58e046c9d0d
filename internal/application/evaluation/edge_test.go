package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeValidator_TooFewBets(t *testing.T) {
	v := NewEdgeValidator(1)
	for i := 0; i < 50; i++ {
		v.RecordBet(1, 0.1, 0.55, 0.50, 1.9)
	}

	res := v.Validate(100)
	assert.False(t, res.HasEdge)
	assert.Equal(t, 50, res.Bets)
	assert.Contains(t, res.Recommendation, "at least 200")
}

func TestEdgeValidator_ConsistentWinner(t *testing.T) {
	v := NewEdgeValidator(1)
	// 250 apuestas con ROI constante del 10% y CLV positivo:
	// implied 0.50 al colocar, cierre 1.80 → 0.556
	for i := 0; i < 250; i++ {
		v.RecordBet(1, 0.10, 0.58, 0.50, 1.80)
	}

	res := v.Validate(500)
	require.True(t, res.HasEdge)
	assert.InDelta(t, 0.10, res.ROI, 1e-9)
	assert.Greater(t, res.CLVMean, 0.01)
	assert.Less(t, res.PValueProfit, 0.05)
	assert.InDelta(t, 0.10, res.EdgeCILow, 1e-9) // beneficios constantes
	assert.InDelta(t, 0.10, res.EdgeCIHigh, 1e-9)
	assert.Contains(t, res.Recommendation, "edge validated")
}

func TestEdgeValidator_BreakEvenRecord(t *testing.T) {
	v := NewEdgeValidator(1)
	// gana y pierde alternando: media 0, nada que validar
	for i := 0; i < 250; i++ {
		profit := 1.0
		if i%2 == 0 {
			profit = -1.0
		}
		v.RecordBet(1, profit, 0.50, 0.50, 0)
	}

	res := v.Validate(500)
	assert.False(t, res.HasEdge)
	assert.Greater(t, res.PValueProfit, 0.05)
	assert.Equal(t, 0.0, res.CLVMean) // sin línea de cierre registrada
}

func TestEdgeValidator_NegativeCLVCalledOut(t *testing.T) {
	v := NewEdgeValidator(1)
	// rentable por ahora pero el cierre va en contra
	for i := 0; i < 250; i++ {
		profit := 0.3
		if i%3 == 0 {
			profit = -0.5
		}
		v.RecordBet(1, profit, 0.52, 0.50, 2.20) // cierre 0.4545 < 0.50
	}

	res := v.Validate(500)
	assert.Less(t, res.CLVMean, 0.0)
	assert.False(t, res.HasEdge)
	assert.Contains(t, res.Recommendation, "closing line")
}

func TestEdgeValidator_BootstrapDeterministic(t *testing.T) {
	build := func() *EdgeValidator {
		v := NewEdgeValidator(42)
		for i := 0; i < 250; i++ {
			profit := 0.8
			if i%4 == 0 {
				profit = -1.0
			}
			v.RecordBet(1, profit, 0.55, 0.50, 0)
		}
		return v
	}

	a := build().Validate(1000)
	b := build().Validate(1000)
	assert.Equal(t, a.EdgeCILow, b.EdgeCILow)
	assert.Equal(t, a.EdgeCIHigh, b.EdgeCIHigh)
	assert.Less(t, a.EdgeCILow, a.EdgeCIHigh)
}

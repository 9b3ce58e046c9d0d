package domain

import "math"

// KellyResult es el resultado del cálculo de fracción Kelly para una apuesta.
type KellyResult struct {
	Fraction       float64 // f* clampeado a [0,1]; 0 = sin edge, no apostar
	Edge           float64 // edge usado en el cálculo (modelo - implícita)
	ExpectedGrowth float64 // crecimiento log esperado apostando Fraction
}

// Kelly calcula la fracción óptima f* = (p·(b+1) − 1) / b, donde b es la
// cuota decimal menos 1 y p la probabilidad del modelo. Resultados negativos
// clampan a 0: sin edge no hay apuesta.
func Kelly(modelProbability, americanOdds float64) KellyResult {
	b := DecimalOdds(americanOdds) - 1
	if b <= 0 || math.IsNaN(modelProbability) {
		return KellyResult{}
	}
	p := clamp01(modelProbability)

	f := (p*(b+1) - 1) / b
	if f <= 0 {
		return KellyResult{Edge: p - ImpliedProbability(americanOdds)}
	}
	if f > 1 {
		f = 1
	}
	return KellyResult{
		Fraction:       f,
		Edge:           p - ImpliedProbability(americanOdds),
		ExpectedGrowth: expectedLogGrowth(p, b, f),
	}
}

// Adjusted devuelve la fracción multiplicada por el multiplicador dado
// (global × attractor, compuestos multiplicativamente por el caller).
func (k KellyResult) Adjusted(multiplier float64) float64 {
	return k.Fraction * clamp01(multiplier)
}

// HalfKelly y QuarterKelly son transformaciones escalares puras, no estado.
func (k KellyResult) HalfKelly() float64    { return k.Fraction * 0.5 }
func (k KellyResult) QuarterKelly() float64 { return k.Fraction * 0.25 }

// expectedLogGrowth es E[log(bankroll)] por apuesta: p·ln(1+f·b) + q·ln(1−f).
// Con f=1 el término de pérdida diverge; se acota f para mantenerlo finito.
func expectedLogGrowth(p, b, f float64) float64 {
	if f >= 1 {
		f = 1 - 1e-9
	}
	return p*math.Log(1+f*b) + (1-p)*math.Log(1-f)
}

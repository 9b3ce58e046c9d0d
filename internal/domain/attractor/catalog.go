package attractor

import "github.com/alejandrodnm/geobet/internal/domain"

// DefaultName es el attractor devuelto cuando el portfolio está vacío.
const DefaultName = "Unstable Chaos"

// Default es el match con el portfolio indefinido: sin oportunidades activas
// no hay estado que clasificar, fuerza 0 y esperar.
func Default() Match {
	return Match{Name: DefaultName, Action: domain.ActionWait, Strength: 0}
}

// Catalog devuelve la tabla fija de 7 attractors. Los umbrales están en
// unidades sin escalar: edge crudo, confianza directa, delta de momentum.
// El orden de declaración es el orden de desempate — no reordenar.
func Catalog() []Definition {
	return []Definition{
		{
			Name:            "Strong Convergence",
			Action:          domain.ActionExecute,
			KellyMultiplier: 1.0,
			Conditions: []Condition{
				{domain.ChannelEdge, Min, 0.08},
				{domain.ChannelInvConfidence, Min, 0.80}, // confianza >= 0.80
				{domain.ChannelMomentum, Min, 0.01},
			},
		},
		{
			Name:            "Stable Edge",
			Action:          domain.ActionExecute,
			KellyMultiplier: 0.8,
			Conditions: []Condition{
				{domain.ChannelEdge, Min, 0.05},
				{domain.ChannelInvConfidence, Min, 0.65},
				{domain.ChannelCorrelation, Max, 0.50},
			},
		},
		{
			Name:            "Emerging Edge",
			Action:          domain.ActionPrepare,
			KellyMultiplier: 0.5,
			Conditions: []Condition{
				{domain.ChannelEdge, Min, 0.03},
				{domain.ChannelMomentum, Min, 0.005},
			},
		},
		{
			Name:            "Time Squeeze",
			Action:          domain.ActionExecute,
			KellyMultiplier: 0.6,
			Conditions: []Condition{
				{domain.ChannelEdge, Min, 0.04},
				{domain.ChannelTimePressure, Min, 0.50},
			},
		},
		{
			Name:            "Crowded Trade",
			Action:          domain.ActionReduce,
			KellyMultiplier: 0.3,
			Conditions: []Condition{
				{domain.ChannelCorrelation, Min, 0.60},
				{domain.ChannelEdge, Min, 0.02},
			},
		},
		{
			Name:            "Efficient Market",
			Action:          domain.ActionPass,
			KellyMultiplier: 0,
			Conditions: []Condition{
				{domain.ChannelEdge, Max, 0.02},
				{domain.ChannelEfficiency, Max, 0.30},
			},
		},
		{
			Name:            DefaultName,
			Action:          domain.ActionWait,
			KellyMultiplier: 0,
			Conditions: []Condition{
				{domain.ChannelEfficiency, Min, 0.70},
				{domain.ChannelInvConfidence, Max, 0.40}, // confianza <= 0.40
			},
		},
	}
}

package domain

import "math"

// Channel identifica uno de los 6 canales de señal normalizados.
type Channel int

const (
	ChannelEdge Channel = iota
	ChannelInvConfidence
	ChannelTimePressure
	ChannelCorrelation
	ChannelEfficiency
	ChannelMomentum

	NumChannels = 6
)

// String devuelve el nombre del canal para logs y export.
func (c Channel) String() string {
	switch c {
	case ChannelEdge:
		return "edge"
	case ChannelInvConfidence:
		return "inv_confidence"
	case ChannelTimePressure:
		return "time_pressure"
	case ChannelCorrelation:
		return "correlation"
	case ChannelEfficiency:
		return "efficiency"
	case ChannelMomentum:
		return "momentum"
	}
	return "unknown"
}

// ChannelVector son los 6 canales de una oportunidad, todos acotados a [0,1].
// El canal de momentum está centrado en 0.5 (neutral). Invariante: los 6
// valores son finitos — los NaN del input se coercionan en MapChannels.
type ChannelVector [NumChannels]float64

// ChannelScales son las escalas de normalización de los canales.
// Vienen de la configuración; todas deben ser positivas.
type ChannelScales struct {
	EdgeScale     float64 // edge crudo → [0,1]; default 10 (edge de 0.10 satura)
	TimeScale     float64 // saturación de la presión temporal; default 1
	TimeDecayMins float64 // constante del decaimiento exponencial; default 20
	MomentumScale float64 // delta de edge → desviación sobre 0.5; default 5
}

// DefaultChannelScales devuelve las escalas por defecto documentadas.
func DefaultChannelScales() ChannelScales {
	return ChannelScales{EdgeScale: 10, TimeScale: 1, TimeDecayMins: 20, MomentumScale: 5}
}

// MapChannels convierte una oportunidad + contexto en los 6 canales acotados.
// Es la frontera de saneamiento: cualquier NaN/Inf del input se coerciona a un
// default neutro (0, o 0.5 para momentum) y nunca se propaga.
func MapChannels(o Opportunity, c Context, s ChannelScales) ChannelVector {
	var v ChannelVector

	edge := sanitize(o.Edge(), 0)
	if edge < 0 {
		edge = 0 // edge negativo o cero clampa a 0: no hay señal
	}
	v[ChannelEdge] = clamp01(edge * s.EdgeScale)

	v[ChannelInvConfidence] = 1 - clamp01(sanitize(o.Confidence, 0))

	mins := sanitize(c.MinutesToClose, math.MaxFloat64)
	if mins < 0 {
		mins = 0
	}
	v[ChannelTimePressure] = clamp01(math.Exp(-mins/s.TimeDecayMins) * s.TimeScale)

	v[ChannelCorrelation] = clamp01(sanitize(c.CorrelatedExposure, 0))
	v[ChannelEfficiency] = clamp01(sanitize(c.MarketVolatility, 0))

	delta := 0.0
	if c.HasPreviousEdge {
		delta = sanitize(edge-sanitize(c.PreviousEdge, edge), 0)
	}
	v[ChannelMomentum] = 0.5 + clamp(delta*s.MomentumScale, -0.5, 0.5)

	return v
}

// UnscaledChannels son los valores de canal con la escala revertida, en las
// unidades naturales del dominio. Los umbrales de los attractors se comparan
// contra estos valores, no contra los canales escalados.
type UnscaledChannels struct {
	Edge         float64 // edge crudo (modelo - implícita)
	Confidence   float64 // confianza del modelo [0,1]
	TimePressure float64 // exp(-mins/decay), sin la escala de saturación
	Correlation  float64 // exposición correlacionada [0,1]
	Efficiency   float64 // proxy de volatilidad [0,1]
	Momentum     float64 // delta de edge entre ticks
}

// Unscale revierte la escala canal a canal. La inversión de la presión
// temporal solo revierte el factor lineal TimeScale: el exponencial se
// invierte aparte en MinutesFromPressure, con un suelo explícito.
func (v ChannelVector) Unscale(s ChannelScales) UnscaledChannels {
	return UnscaledChannels{
		Edge:         v[ChannelEdge] / s.EdgeScale,
		Confidence:   1 - v[ChannelInvConfidence],
		TimePressure: v[ChannelTimePressure] / s.TimeScale,
		Correlation:  v[ChannelCorrelation],
		Efficiency:   v[ChannelEfficiency],
		Momentum:     (v[ChannelMomentum] - 0.5) / s.MomentumScale,
	}
}

// minPressureFloor acota la inversión del canal exponencial: por debajo de
// este valor el canal ya no distingue horizontes (satura en "muy lejano").
const minPressureFloor = 1e-6

// MinutesFromPressure invierte el canal de presión temporal a minutos.
// La inversión es inexacta por construcción (el canal satura en 0 para
// horizontes largos): se acota con un suelo explícito en vez del offset
// arbitrario dentro del logaritmo que usaba la formulación previa.
func MinutesFromPressure(pressure float64, s ChannelScales) float64 {
	p := clamp01(pressure) / s.TimeScale
	if p < minPressureFloor {
		p = minPressureFloor
	}
	if p > 1 {
		p = 1
	}
	return -s.TimeDecayMins * math.Log(p)
}

// sanitize coerciona NaN/Inf al default dado.
func sanitize(x, def float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return def
	}
	return x
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

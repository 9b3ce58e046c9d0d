package domain

import "math"

// positionChannels son los 4 canales que definen la posición 4D.
// Correlation y Momentum quedan fuera: modulan la decisión, no la geometría.
var positionChannels = [4]Channel{ChannelEdge, ChannelInvConfidence, ChannelTimePressure, ChannelEfficiency}

// GeometricState es la posición de una oportunidad en el espacio de estados.
// Posición 4D con cada canal recentrado a [-1,1]; energy = magnitud.
type GeometricState struct {
	GameID   string
	Position [4]float64
	Energy   float64
	Channels ChannelVector
}

// NewGeometricState proyecta un ChannelVector al espacio 4D.
func NewGeometricState(gameID string, v ChannelVector) GeometricState {
	var pos [4]float64
	for i, ch := range positionChannels {
		pos[i] = v[ch]*2 - 1 // [0,1] → [-1,1]
	}
	return GeometricState{
		GameID:   gameID,
		Position: pos,
		Energy:   magnitude(pos),
		Channels: v,
	}
}

// Rotation deriva un descriptor de rotación de los 6 canales, en radianes.
// Solo lo consume el export de visualización: es función pura del
// ChannelVector, no estado independiente.
func (g GeometricState) Rotation() [3]float64 {
	return [3]float64{
		(g.Channels[ChannelEdge] - g.Channels[ChannelInvConfidence]) * math.Pi,
		(g.Channels[ChannelTimePressure] - g.Channels[ChannelCorrelation]) * math.Pi,
		(g.Channels[ChannelEfficiency] + g.Channels[ChannelMomentum] - 1) * math.Pi,
	}
}

// PortfolioState es el agregado de los estados geométricos activos.
type PortfolioState struct {
	Size            int
	Position        [4]float64    // media componente a componente
	Channels        ChannelVector // media de canales
	Energy          float64       // magnitud de la posición media
	Crystallization float64       // similitud coseno media entre pares, en [-1,1]
}

// AggregatePortfolio promedia los estados activos en un PortfolioState.
// Con 0 oportunidades devuelve el estado cero (Size=0); la cristalización
// se define como 0 con menos de 2 miembros.
func AggregatePortfolio(states []GeometricState) PortfolioState {
	n := len(states)
	if n == 0 {
		return PortfolioState{}
	}

	var p PortfolioState
	p.Size = n
	for _, st := range states {
		for i := range p.Position {
			p.Position[i] += st.Position[i]
		}
		for i := range p.Channels {
			p.Channels[i] += st.Channels[i]
		}
	}
	for i := range p.Position {
		p.Position[i] /= float64(n)
	}
	for i := range p.Channels {
		p.Channels[i] /= float64(n)
	}
	p.Energy = magnitude(p.Position)
	p.Crystallization = crystallization(states)
	return p
}

// crystallization calcula la similitud coseno media sobre todos los pares
// no ordenados. 0 con menos de 2 miembros.
func crystallization(states []GeometricState) float64 {
	n := len(states)
	if n < 2 {
		return 0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += CosineSimilarity(states[i].Position, states[j].Position)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// CosineSimilarity devuelve la similitud coseno de dos posiciones 4D.
// Vectores de magnitud cero contribuyen 0, nunca división por cero.
func CosineSimilarity(a, b [4]float64) float64 {
	ma, mb := magnitude(a), magnitude(b)
	if ma == 0 || mb == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (ma * mb)
}

func magnitude(v [4]float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

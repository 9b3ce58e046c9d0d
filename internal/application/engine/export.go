package engine

import (
	"encoding/json"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// GeometricQuery is the observability snapshot returned by
// QueryGeometricState. Reading it never mutates engine state.
type GeometricQuery struct {
	Attractor       string
	Crystallization float64
	Energy          float64
	Channels        domain.ChannelVector
	PortfolioSize   int
	Complexity      float64
	Stability       float64
}

// QueryGeometricState returns the latest aggregate state. Idempotent:
// two calls without an intervening Update return identical results.
func (e *Engine) QueryGeometricState() GeometricQuery {
	return GeometricQuery{
		Attractor:       e.lastAttractor,
		Crystallization: e.lastPortfolio.Crystallization,
		Energy:          e.lastPortfolio.Energy,
		Channels:        e.lastPortfolio.Channels,
		PortfolioSize:   e.lastPortfolio.Size,
		Complexity:      e.lastSummary.Complexity,
		Stability:       e.lastSummary.Stability,
	}
}

// VisualizationExport is the one-directional contract with the
// external rendering layer: it reads positions and rotations, never
// engine state.
type VisualizationExport struct {
	Attractor string                `json:"attractor"`
	Positions map[string][4]float64 `json:"positions"`
	Rotations map[string][3]float64 `json:"rotations"`
}

func (e *Engine) ExportForVisualization() VisualizationExport {
	out := VisualizationExport{
		Attractor: e.lastAttractor,
		Positions: make(map[string][4]float64, len(e.lastStates)),
		Rotations: make(map[string][3]float64, len(e.lastStates)),
	}
	for _, st := range e.lastStates {
		out.Positions[st.GameID] = st.Position
		out.Rotations[st.GameID] = st.Rotation()
	}
	return out
}

type stateExport struct {
	Tick            int                   `json:"tick"`
	Attractor       string                `json:"attractor"`
	Crystallization float64               `json:"crystallization"`
	Energy          float64               `json:"energy"`
	PortfolioSize   int                   `json:"portfolio_size"`
	Betti           [3]int                `json:"betti"`
	Complexity      float64               `json:"complexity"`
	Stability       float64               `json:"stability"`
	Bankroll        float64               `json:"bankroll"`
	Positions       map[string][4]float64 `json:"positions"`
}

// ExportState returns a JSON snapshot for external logging and
// telemetry.
func (e *Engine) ExportState() ([]byte, error) {
	positions := make(map[string][4]float64, len(e.lastStates))
	for _, st := range e.lastStates {
		positions[st.GameID] = st.Position
	}
	return json.Marshal(stateExport{
		Tick:            e.tick,
		Attractor:       e.lastAttractor,
		Crystallization: e.lastPortfolio.Crystallization,
		Energy:          e.lastPortfolio.Energy,
		PortfolioSize:   e.lastPortfolio.Size,
		Betti:           [3]int{e.lastSummary.Betti0, e.lastSummary.Betti1, e.lastSummary.Betti2},
		Complexity:      e.lastSummary.Complexity,
		Stability:       e.lastSummary.Stability,
		Bankroll:        e.sizer.Bankroll(),
		Positions:       positions,
	})
}

package engine

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/geobet/config"
	"github.com/alejandrodnm/geobet/internal/domain"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(cfg, nil, log)
	require.NoError(t, err)
	return e
}

func referenceOpp(gameID string) domain.Opportunity {
	return domain.Opportunity{
		GameID:             gameID,
		ModelProbability:   0.60,
		ImpliedProbability: 0.50,
		Confidence:         0.7,
		AmericanOdds:       100,
		BetType:            domain.BetMoneyline,
	}
}

func referenceCtx(gameID string) map[string]domain.Context {
	return map[string]domain.Context{gameID: {MinutesToClose: 30}}
}

func TestUpdate_ReferenceScenario_Executes(t *testing.T) {
	e := newTestEngine(t, nil)

	d, events := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))

	assert.Equal(t, "Stable Edge", d.Attractor)
	assert.True(t, d.Execute)
	assert.Equal(t, domain.ActionExecute, d.Type)
	require.Len(t, d.Allocations, 1)
	assert.Greater(t, d.Allocations[0].Fraction, 0.0)
	assert.LessOrEqual(t, d.Allocations[0].Fraction, 0.05+1e-9)
	assert.NotEmpty(t, d.ID)

	// la primera clasificación emite un cambio de atractor
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventAttractorChange, events[0].Type)
	assert.Contains(t, events[0].Detail, "Stable Edge")
}

func TestUpdate_EmptyTick_DefaultsToWait(t *testing.T) {
	e := newTestEngine(t, nil)

	d, _ := e.Update(nil, nil)
	assert.Equal(t, domain.ActionWait, d.Type)
	assert.False(t, d.Execute)
	assert.Empty(t, d.Allocations)
	assert.Equal(t, "Unstable Chaos", d.Attractor)
}

func TestUpdate_InvalidOpportunityExcluded(t *testing.T) {
	e := newTestEngine(t, nil)

	bad := referenceOpp("g-bad")
	bad.ModelProbability = math.NaN()

	d, _ := e.Update([]domain.Opportunity{bad, referenceOpp("g1")}, referenceCtx("g1"))
	require.Len(t, d.Allocations, 1)
	assert.Equal(t, "g1", d.Allocations[0].GameID)
}

func TestUpdate_NoSurvivingAllocation_DowngradesToWait(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Risk.MinConfidence = 0.9 // la confianza 0.7 no pasa el gate
	})

	d, _ := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))
	assert.Equal(t, domain.ActionWait, d.Type)
	assert.False(t, d.Execute)
	assert.Contains(t, d.Reasons, "no valid allocations")
}

func TestUpdate_LowConfidence_DowngradesToPrepare(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Engine.MinExecuteConfidence = 0.95
	})

	d, _ := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))
	assert.Equal(t, domain.ActionPrepare, d.Type)
	assert.False(t, d.Execute)
	require.NotEmpty(t, d.Reasons)
	assert.Contains(t, d.Reasons[len(d.Reasons)-1], "execution minimum")
}

func TestUpdate_CooldownDiscountsConfidence(t *testing.T) {
	now := time.Date(2026, 8, 24, 19, 0, 0, 0, time.UTC)
	e := newTestEngine(t, nil).WithClock(func() time.Time { return now })

	for _, g := range []string{"g1", "g2", "g3"} {
		d, _ := e.Update([]domain.Opportunity{referenceOpp(g)}, referenceCtx(g))
		require.True(t, d.Execute, g)
		now = now.Add(5 * time.Second)
	}

	d, _ := e.Update([]domain.Opportunity{referenceOpp("g4")}, referenceCtx("g4"))
	assert.Contains(t, d.Reasons, "execution cooldown active")
	// 0.74 de base con descuento ×0.8
	assert.InDelta(t, 0.592, d.Confidence, 0.001)
}

func TestUpdate_MissingContextIsDistantClose(t *testing.T) {
	e := newTestEngine(t, nil)

	opp := referenceOpp("g1")
	opp.ModelProbability = 0.55 // edge 0.05
	opp.Confidence = 0.6

	d, _ := e.Update([]domain.Opportunity{opp}, nil)

	// sin contexto no hay cierre inminente: la presión temporal es 0,
	// no 1, y el tick no puede ejecutar por un "Time Squeeze" fabricado
	q := e.QueryGeometricState()
	assert.InDelta(t, 0.0, q.Channels[domain.ChannelTimePressure], 1e-9)
	assert.NotEqual(t, "Time Squeeze", d.Attractor)
	assert.False(t, d.Execute)
}

func TestUpdate_MomentumIsPerOpportunity(t *testing.T) {
	e := newTestEngine(t, nil)

	ml := referenceOpp("g1") // moneyline, edge +0.10
	total := referenceOpp("g1")
	total.BetType = domain.BetTotal
	total.ModelProbability = 0.54 // edge +0.04

	opps := []domain.Opportunity{ml, total}
	e.Update(opps, referenceCtx("g1"))
	e.Update(opps, referenceCtx("g1"))

	// edges idénticos entre ticks: momentum neutral para ambos lados.
	// Si las historias se mezclaran por juego, el lado moneyline vería
	// el delta contra el edge del total y desviaría el canal.
	q := e.QueryGeometricState()
	assert.InDelta(t, 0.5, q.Channels[domain.ChannelMomentum], 1e-9)
}

func TestUpdate_HoleEventsEmitted(t *testing.T) {
	e := newTestEngine(t, nil)

	over := referenceOpp("g1")
	under := referenceOpp("g1")
	under.BetType = domain.BetTotal
	under.ModelProbability = 0.44 // edge -0.06 contra el over

	_, events := e.Update([]domain.Opportunity{over, under}, referenceCtx("g1"))

	var holes int
	for _, ev := range events {
		if ev.Type == domain.EventHoleDetected {
			holes++
			assert.Greater(t, ev.Significance, 0.0)
			assert.NotEmpty(t, ev.GameIDs)
		}
	}
	assert.Greater(t, holes, 0)
}

func TestUpdate_NoAttractorChangeEventOnStableState(t *testing.T) {
	e := newTestEngine(t, nil)

	_, first := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))
	_, second := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))

	assert.NotEmpty(t, first)
	for _, ev := range second {
		assert.NotEqual(t, domain.EventAttractorChange, ev.Type)
	}
}

func TestQueryGeometricState_Idempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))

	q1 := e.QueryGeometricState()
	q2 := e.QueryGeometricState()
	assert.Equal(t, q1, q2)
	assert.Equal(t, "Stable Edge", q1.Attractor)
	assert.Equal(t, 1, q1.PortfolioSize)
}

func TestExportForVisualization_ReadOnlyContract(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))

	v := e.ExportForVisualization()
	assert.Equal(t, "Stable Edge", v.Attractor)
	assert.Contains(t, v.Positions, "g1:moneyline")
	assert.Contains(t, v.Rotations, "g1:moneyline")

	// mutar la copia exportada no toca el estado del engine
	v.Positions["g1:moneyline"] = [4]float64{9, 9, 9, 9}
	again := e.ExportForVisualization()
	assert.NotEqual(t, [4]float64{9, 9, 9, 9}, again.Positions["g1:moneyline"])
}

func TestExportState_ValidJSON(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))

	raw, err := e.ExportState()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Stable Edge", out["attractor"])
	assert.EqualValues(t, 1, out["portfolio_size"])
	assert.Contains(t, out, "betti")
	assert.Contains(t, out, "bankroll")
}

func TestRemoveOpportunity_PurgesState(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Update([]domain.Opportunity{referenceOpp("g1"), referenceOpp("g2")}, map[string]domain.Context{
		"g1": {MinutesToClose: 30},
		"g2": {MinutesToClose: 30},
	})

	e.RemoveOpportunity("g1")

	v := e.ExportForVisualization()
	assert.NotContains(t, v.Positions, "g1:moneyline")
	assert.Contains(t, v.Positions, "g2:moneyline")
	assert.Equal(t, 1, e.QueryGeometricState().PortfolioSize)
}

func TestSetBankroll_FlowsIntoAllocations(t *testing.T) {
	e := newTestEngine(t, nil)
	e.SetBankroll(2000)

	d, _ := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))
	require.Len(t, d.Allocations, 1)
	assert.InDelta(t, 2000*d.Allocations[0].Fraction, d.Allocations[0].DollarAmount, 0.01)
}

func TestTiers(t *testing.T) {
	assert.Equal(t, 0, tierOf(0.2))
	assert.Equal(t, 1, tierOf(0.5))
	assert.Equal(t, 2, tierOf(0.8))
	assert.Equal(t, 3, tierOf(0.95))

	assert.Equal(t, 0.4, upgradeTier(0.2))
	assert.Equal(t, 0.7, upgradeTier(0.5))
	assert.Equal(t, 0.9, upgradeTier(0.8))
	assert.Equal(t, 0.95, upgradeTier(0.95)) // top tier no sube más
}

func TestRecordOutcome_StreakShrinksNextAllocation(t *testing.T) {
	e := newTestEngine(t, nil)

	base, _ := e.Update([]domain.Opportunity{referenceOpp("g1")}, referenceCtx("g1"))
	require.Len(t, base.Allocations, 1)

	for i := 0; i < 3; i++ {
		e.RecordOutcome(false)
	}

	next, _ := e.Update([]domain.Opportunity{referenceOpp("g2")}, referenceCtx("g2"))
	require.Len(t, next.Allocations, 1)
	assert.InDelta(t, base.Allocations[0].Fraction*0.125, next.Allocations[0].Fraction, 1e-9)
}

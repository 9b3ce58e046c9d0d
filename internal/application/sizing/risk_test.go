package sizing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/geobet/config"
)

func riskConfig() config.RiskConfig {
	return config.RiskConfig{
		MinEdge:               0.02,
		MinConfidence:         0.5,
		MaxPerGameExposure:    0.10,
		MaxDailyBets:          20,
		MaxDailyExposure:      0.5,
		StreakReductionFactor: 0.5,
	}
}

func TestRiskManager_ApprovesCleanBet(t *testing.T) {
	r := NewRiskManager(riskConfig())
	g := r.Evaluate("g1", 0.04, 0.05, 0.7)
	require.True(t, g.Approved)
	assert.Equal(t, 0.04, g.Fraction)
	assert.Empty(t, g.Reason)
}

func TestRiskManager_GateOrderAndReasons(t *testing.T) {
	r := NewRiskManager(riskConfig())

	low := r.Evaluate("g1", 0.04, 0.01, 0.7)
	assert.False(t, low.Approved)
	assert.Contains(t, low.Reason, "edge")

	shaky := r.Evaluate("g1", 0.04, 0.05, 0.3)
	assert.False(t, shaky.Approved)
	assert.Contains(t, shaky.Reason, "confidence")

	// edge falla primero aunque la confianza también sea mala
	both := r.Evaluate("g1", 0.04, 0.01, 0.3)
	assert.Contains(t, both.Reason, "edge")
}

func TestRiskManager_NaNInputsRejected(t *testing.T) {
	r := NewRiskManager(riskConfig())
	for _, g := range []GateResult{
		r.Evaluate("g1", math.NaN(), 0.05, 0.7),
		r.Evaluate("g1", 0.04, math.NaN(), 0.7),
		r.Evaluate("g1", 0.04, 0.05, math.NaN()),
	} {
		assert.False(t, g.Approved)
		assert.Contains(t, g.Reason, "invalid numeric input")
	}
}

func TestRiskManager_PerGameExposureCap(t *testing.T) {
	r := NewRiskManager(riskConfig())
	r.Commit("g1", 0.08)

	blocked := r.Evaluate("g1", 0.05, 0.05, 0.7)
	assert.False(t, blocked.Approved)
	assert.Contains(t, blocked.Reason, "per-game")

	// otro juego no comparte el cap
	other := r.Evaluate("g2", 0.05, 0.05, 0.7)
	assert.True(t, other.Approved)
}

func TestRiskManager_DailyBetCountCap(t *testing.T) {
	cfg := riskConfig()
	cfg.MaxDailyBets = 2
	r := NewRiskManager(cfg)

	r.Commit("g1", 0.01)
	r.Commit("g2", 0.01)

	blocked := r.Evaluate("g3", 0.01, 0.05, 0.7)
	assert.False(t, blocked.Approved)
	assert.Contains(t, blocked.Reason, "daily bet count")
}

func TestRiskManager_DailyExposureCap(t *testing.T) {
	cfg := riskConfig()
	cfg.MaxDailyExposure = 0.05
	cfg.MaxPerGameExposure = 1
	r := NewRiskManager(cfg)

	r.Commit("g1", 0.04)
	blocked := r.Evaluate("g2", 0.02, 0.05, 0.7)
	assert.False(t, blocked.Approved)
	assert.Contains(t, blocked.Reason, "daily exposure")
}

func TestRiskManager_StreakReduction(t *testing.T) {
	r := NewRiskManager(riskConfig())

	// tres derrotas consecutivas → base × 0.5³
	for i := 0; i < 3; i++ {
		r.RecordOutcome(false)
	}
	assert.Equal(t, 3, r.ConsecutiveLosses())

	g := r.Evaluate("g1", 0.04, 0.05, 0.7)
	require.True(t, g.Approved)
	assert.InDelta(t, 0.04*0.125, g.Fraction, 1e-12)

	// una victoria resetea la racha
	r.RecordOutcome(true)
	full := r.Evaluate("g1", 0.04, 0.05, 0.7)
	assert.Equal(t, 0.04, full.Fraction)
}

func TestRiskManager_DailyRollover(t *testing.T) {
	cfg := riskConfig()
	cfg.MaxDailyBets = 1
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	r := NewRiskManager(cfg).WithClock(func() time.Time { return now })

	r.Commit("g1", 0.01)
	assert.False(t, r.Evaluate("g2", 0.01, 0.05, 0.7).Approved)

	now = now.Add(24 * time.Hour)
	assert.True(t, r.Evaluate("g2", 0.01, 0.05, 0.7).Approved)
}

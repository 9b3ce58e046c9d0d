package sizing

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/geobet/config"
)

// GateResult is the outcome of running one candidate through the risk
// gates. Rejections are normal decision outcomes, never errors.
type GateResult struct {
	Approved bool
	Reason   string
	Fraction float64
}

// RiskManager applies the ordered gate chain and tracks the daily
// counters and the loss streak. Gates run in a fixed order and the
// first failure rejects with its specific reason:
// edge minimum, confidence minimum, per-game exposure cap, daily bet
// count, daily exposure cap, then the streak reduction.
type RiskManager struct {
	cfg config.RiskConfig
	now func() time.Time

	day               string
	dailyBets         int
	dailyExposure     float64
	perGameExposure   map[string]float64
	consecutiveLosses int
}

func NewRiskManager(cfg config.RiskConfig) *RiskManager {
	return &RiskManager{
		cfg:             cfg,
		now:             time.Now,
		perGameExposure: make(map[string]float64),
	}
}

// WithClock overrides the wall clock, used by tests to force day
// rollovers.
func (r *RiskManager) WithClock(now func() time.Time) *RiskManager {
	r.now = now
	return r
}

// Evaluate runs the gate chain for one candidate allocation. It does
// not mutate counters; call Commit once the bet is actually taken.
func (r *RiskManager) Evaluate(gameID string, fraction, edge, confidence float64) GateResult {
	r.rollover()

	if math.IsNaN(fraction) || math.IsNaN(edge) || math.IsNaN(confidence) {
		return rejected("invalid numeric input")
	}
	if edge < r.cfg.MinEdge {
		return rejected(fmt.Sprintf("edge %.4f below minimum %.4f", edge, r.cfg.MinEdge))
	}
	if confidence < r.cfg.MinConfidence {
		return rejected(fmt.Sprintf("confidence %.2f below minimum %.2f", confidence, r.cfg.MinConfidence))
	}
	if r.perGameExposure[gameID]+fraction > r.cfg.MaxPerGameExposure {
		return rejected(fmt.Sprintf("per-game exposure cap %.2f exceeded for %s", r.cfg.MaxPerGameExposure, gameID))
	}
	if r.dailyBets+1 > r.cfg.MaxDailyBets {
		return rejected(fmt.Sprintf("daily bet count cap %d reached", r.cfg.MaxDailyBets))
	}
	if r.dailyExposure+fraction > r.cfg.MaxDailyExposure {
		return rejected(fmt.Sprintf("daily exposure cap %.2f exceeded", r.cfg.MaxDailyExposure))
	}

	if r.consecutiveLosses > 0 {
		fraction *= math.Pow(r.cfg.StreakReductionFactor, float64(r.consecutiveLosses))
	}
	return GateResult{Approved: true, Fraction: fraction}
}

// Commit records an approved bet into the daily and per-game
// counters.
func (r *RiskManager) Commit(gameID string, fraction float64) {
	r.rollover()
	r.dailyBets++
	r.dailyExposure += fraction
	r.perGameExposure[gameID] += fraction
}

// RecordOutcome feeds a settled result into the streak tracker. A win
// resets the streak, a loss extends it.
func (r *RiskManager) RecordOutcome(win bool) {
	if win {
		r.consecutiveLosses = 0
		return
	}
	r.consecutiveLosses++
}

func (r *RiskManager) ConsecutiveLosses() int { return r.consecutiveLosses }

// Release drops a game's tracked exposure, used when the engine
// removes an opportunity.
func (r *RiskManager) Release(gameID string) {
	delete(r.perGameExposure, gameID)
}

// rollover resets daily counters when the local date changes.
func (r *RiskManager) rollover() {
	today := r.now().Format("2006-01-02")
	if r.day == today {
		return
	}
	r.day = today
	r.dailyBets = 0
	r.dailyExposure = 0
}

func rejected(reason string) GateResult {
	return GateResult{Approved: false, Reason: reason}
}

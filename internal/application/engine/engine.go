// Package engine drives the per-tick decision pipeline: channel
// mapping, geometric aggregation, attractor classification, topology
// tracking and sizing, merged into a single Decision.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/geobet/config"
	"github.com/alejandrodnm/geobet/internal/application/sizing"
	"github.com/alejandrodnm/geobet/internal/application/topology"
	"github.com/alejandrodnm/geobet/internal/domain"
	"github.com/alejandrodnm/geobet/internal/domain/attractor"
)

// edgeHistoryLen bounds the per-opportunity edge history used for
// momentum.
const edgeHistoryLen = 50

// Engine owns all mutable pipeline state. Single-threaded and not
// reentrant: callers must wait for Update to return before the next
// tick.
type Engine struct {
	cfg     *config.Config
	catalog []attractor.Definition
	scales  domain.ChannelScales

	tracker *topology.Tracker
	sizer   *sizing.Sizer
	log     *slog.Logger
	now     func() time.Time

	edgeHistory map[string][]float64
	decisions   []decisionRecord

	lastStates    []domain.GeometricState
	lastPortfolio domain.PortfolioState
	lastAttractor string
	lastSummary   topology.Summary
	tick          int
}

type decisionRecord struct {
	at       time.Time
	executed bool
}

// New builds the engine and fails fast on a malformed attractor
// catalog.
func New(cfg *config.Config, cross sizing.CorrelationSource, log *slog.Logger) (*Engine, error) {
	catalog := attractor.Catalog()
	if err := attractor.Validate(catalog); err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}

	scales := domain.ChannelScales{
		EdgeScale:     cfg.Channels.EdgeScale,
		TimeScale:     cfg.Channels.TimeScale,
		TimeDecayMins: cfg.Channels.TimeDecayMins,
		MomentumScale: cfg.Channels.MomentumScale,
	}

	tracker := topology.New(topology.Config{
		Window:            cfg.Engine.SnapshotWindow,
		EdgeThreshold:     cfg.Topology.EdgeThreshold,
		MinPersistence:    cfg.Topology.MinPersistence,
		ClusterEpsilon:    cfg.Topology.ClusterEpsilon,
		MinClusterSize:    cfg.Topology.MinClusterSize,
		VarianceThreshold: cfg.Topology.VarianceThreshold,
	})

	risk := sizing.NewRiskManager(cfg.Risk)
	return &Engine{
		cfg:         cfg,
		catalog:     catalog,
		scales:      scales,
		tracker:     tracker,
		sizer:       sizing.NewSizer(cfg.Sizing, risk, cross, log),
		log:         log,
		now:         time.Now,
		edgeHistory: make(map[string][]float64),
	}, nil
}

// WithClock overrides the wall clock used for decision timestamps and
// the cooldown window.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SetBankroll updates the sizing bankroll independently of ticks.
func (e *Engine) SetBankroll(b float64) { e.sizer.SetBankroll(b) }

// RecordOutcome feeds a settled bet result into the loss-streak
// tracker.
func (e *Engine) RecordOutcome(win bool) { e.sizer.Risk().RecordOutcome(win) }

// Update runs one tick. Invalid opportunities are excluded, never
// defaulted into a fake edge. The adjustment order is fixed because
// the steps do not commute:
//
//  1. classify the aggregate state against the catalog
//  2. holes above the significance floor upgrade strength one tier
//  3. high topology complexity downgrades EXECUTE to PREPARE unless
//     strength sits in the top tier
//  4. sizing and risk gates; EXECUTE with no surviving allocation
//     becomes WAIT
//  5. blend confidence, then apply the execution cooldown discount
//  6. confidence below the execution minimum downgrades EXECUTE to
//     PREPARE
func (e *Engine) Update(opps []domain.Opportunity, contexts map[string]domain.Context) (domain.Decision, []domain.Event) {
	e.tick++
	var events []domain.Event

	valid := opps[:0:0]
	for _, o := range opps {
		if err := o.Validate(); err != nil {
			e.log.Warn("opportunity excluded", "game_id", o.GameID, "error", err)
			continue
		}
		valid = append(valid, o)
	}

	states := make([]domain.GeometricState, 0, len(valid))
	entries := make([]topology.Entry, 0, len(valid))
	var confSum float64
	for _, o := range valid {
		key := opportunityKey(o)
		ctx, ok := contexts[o.GameID]
		if !ok {
			// a missing context is a distant close, never pressure to act
			ctx.MinutesToClose = math.MaxFloat64
		}
		if hist := e.edgeHistory[key]; len(hist) > 0 {
			ctx.PreviousEdge = hist[len(hist)-1]
			ctx.HasPreviousEdge = true
		}
		v := domain.MapChannels(o, ctx, e.scales)
		st := domain.NewGeometricState(key, v)
		states = append(states, st)
		entries = append(entries, topology.Entry{
			Key:      key,
			GameID:   o.GameID,
			Position: st.Position,
			Edge:     o.Edge(),
		})
		confSum += o.Confidence
	}
	for _, o := range valid {
		e.pushEdge(opportunityKey(o), o.Edge())
	}

	portfolio := domain.AggregatePortfolio(states)
	summary := e.tracker.AddSnapshot(entries)

	match := attractor.Default()
	if len(valid) > 0 {
		match = attractor.Classify(e.catalog, portfolio.Channels.Unscale(e.scales))
	}

	if match.Name != e.lastAttractor {
		events = append(events, domain.Event{
			Type:   domain.EventAttractorChange,
			Detail: fmt.Sprintf("%s -> %s", previousOr(e.lastAttractor), match.Name),
		})
	}
	for _, h := range summary.Holes {
		events = append(events, domain.Event{
			Type:         domain.EventHoleDetected,
			Detail:       fmt.Sprintf("%s: %s", h.Type, h.Detail),
			GameIDs:      h.Keys,
			Significance: h.Significance,
		})
	}

	decision := e.assemble(valid, match, summary, portfolio, confSum)

	e.lastStates = states
	e.lastPortfolio = portfolio
	e.lastAttractor = match.Name
	e.lastSummary = summary
	e.pushDecision(decision)

	return decision, events
}

func (e *Engine) assemble(valid []domain.Opportunity, match attractor.Match, summary topology.Summary, portfolio domain.PortfolioState, confSum float64) domain.Decision {
	action := match.Action
	strength := match.Strength
	var reasons []string

	// step 2: hole upgrade
	for _, h := range summary.Holes {
		if h.Significance > e.cfg.Engine.HoleUpgradeMin {
			strength = upgradeTier(strength)
			reasons = append(reasons, fmt.Sprintf("signal upgraded by %s hole", h.Type))
			break
		}
	}

	// step 3: complexity downgrade
	if action == domain.ActionExecute && summary.Complexity > e.cfg.Engine.ComplexityDowngrade && tierOf(strength) < topTier {
		action = domain.ActionPrepare
		reasons = append(reasons, fmt.Sprintf("topology complexity %.2f above %.2f", summary.Complexity, e.cfg.Engine.ComplexityDowngrade))
	}

	// step 4: sizing and gates
	var allocations []domain.Allocation
	if action == domain.ActionExecute || action == domain.ActionReduce {
		inputs := make([]sizing.Input, 0, len(valid))
		for _, o := range valid {
			inputs = append(inputs, sizing.Input{Opportunity: o, AttractorMultiplier: match.KellyMultiplier})
		}
		res := e.sizer.Size(inputs)
		allocations = res.Allocations
		reasons = append(reasons, res.Rejections...)
		if res.Independent {
			reasons = append(reasons, "covariance rejected, sized independently")
		}
		if action == domain.ActionExecute && len(allocations) == 0 {
			action = domain.ActionWait
			reasons = append(reasons, "no valid allocations")
		}
	}

	// step 5: confidence blend and cooldown
	confidence := blendConfidence(strength, portfolio.Crystallization, meanOr0(confSum, len(valid)))
	cutoff := e.now().Add(-time.Duration(e.cfg.Engine.CooldownWindowSecs) * time.Second)
	if e.executionsSince(cutoff) >= e.cfg.Engine.CooldownExecutions {
		confidence *= e.cfg.Engine.CooldownDiscount
		reasons = append(reasons, "execution cooldown active")
	}

	// step 6: minimum execution confidence
	if action == domain.ActionExecute && confidence < e.cfg.Engine.MinExecuteConfidence {
		action = domain.ActionPrepare
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below execution minimum %.2f", confidence, e.cfg.Engine.MinExecuteConfidence))
	}

	return domain.Decision{
		ID:          uuid.New().String(),
		Execute:     action == domain.ActionExecute && len(allocations) > 0,
		Type:        action,
		Allocations: allocations,
		Confidence:  confidence,
		Attractor:   match.Name,
		Reasons:     reasons,
		Timestamp:   e.now(),
	}
}

// RemoveOpportunity purges a game from every history and recomputes
// the aggregate state so the next tick starts clean.
func (e *Engine) RemoveOpportunity(gameID string) {
	for key := range e.edgeHistory {
		if belongsTo(key, gameID) {
			delete(e.edgeHistory, key)
		}
	}
	e.tracker.RemoveGame(gameID)
	e.sizer.Risk().Release(gameID)

	kept := e.lastStates[:0]
	for _, st := range e.lastStates {
		if !belongsTo(st.GameID, gameID) {
			kept = append(kept, st)
		}
	}
	e.lastStates = kept
	e.lastPortfolio = domain.AggregatePortfolio(e.lastStates)
}

func (e *Engine) pushEdge(key string, edge float64) {
	hist := append(e.edgeHistory[key], edge)
	if len(hist) > edgeHistoryLen {
		hist = hist[len(hist)-edgeHistoryLen:]
	}
	e.edgeHistory[key] = hist
}

func (e *Engine) pushDecision(d domain.Decision) {
	e.decisions = append(e.decisions, decisionRecord{at: d.Timestamp, executed: d.Execute})
	if max := e.cfg.Engine.DecisionHistory; len(e.decisions) > max {
		e.decisions = e.decisions[len(e.decisions)-max:]
	}
}

func (e *Engine) executionsSince(cutoff time.Time) int {
	n := 0
	for _, r := range e.decisions {
		if r.executed && r.at.After(cutoff) {
			n++
		}
	}
	return n
}

// Signal tiers. A hole upgrade promotes strength to the floor of the
// next tier; the complexity downgrade spares only the top tier.
const topTier = 3

var tierFloors = [4]float64{0, 0.4, 0.7, 0.9}

func tierOf(strength float64) int {
	switch {
	case strength >= 0.9:
		return 3
	case strength >= 0.7:
		return 2
	case strength >= 0.4:
		return 1
	default:
		return 0
	}
}

func upgradeTier(strength float64) float64 {
	t := tierOf(strength)
	if t >= topTier {
		return strength
	}
	next := tierFloors[t+1]
	if next > strength {
		return next
	}
	return strength
}

// blendConfidence weighs the attractor match strength with portfolio
// coherence and the opportunities' own confidence.
func blendConfidence(strength, crystallization, meanConfidence float64) float64 {
	c := crystallization
	if c < 0 || math.IsNaN(c) {
		c = 0
	}
	return strength*0.6 + c*0.2 + meanConfidence*0.2
}

func meanOr0(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func opportunityKey(o domain.Opportunity) string {
	return o.GameID + ":" + string(o.BetType)
}

func belongsTo(key, gameID string) bool {
	if key == gameID {
		return true
	}
	return len(key) > len(gameID) && key[:len(gameID)] == gameID && key[len(gameID)] == ':'
}

func previousOr(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

// Package sizing turns classified opportunities into capital
// allocations: individual Kelly fractions, correlation-aware joint
// scaling and the ordered risk gates.
package sizing

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/geobet/config"
	"github.com/alejandrodnm/geobet/internal/domain"
)

// Input pairs an opportunity with the Kelly multiplier of the
// attractor that classified it.
type Input struct {
	Opportunity         domain.Opportunity
	AttractorMultiplier float64
}

// Result is one tick's sizing output. Independent reports that the
// covariance model was rejected and the batch fell back to
// uncorrelated sizing.
type Result struct {
	Allocations []domain.Allocation
	Rejections  []string
	Independent bool
}

// Sizer owns the bankroll and the risk manager. Single-threaded, the
// engine drives it once per tick.
type Sizer struct {
	cfg      config.SizingConfig
	risk     *RiskManager
	cross    CorrelationSource
	bankroll float64
	log      *slog.Logger
}

func NewSizer(cfg config.SizingConfig, risk *RiskManager, cross CorrelationSource, log *slog.Logger) *Sizer {
	return &Sizer{
		cfg:      cfg,
		risk:     risk,
		cross:    cross,
		bankroll: cfg.InitialBankroll,
		log:      log,
	}
}

// SetBankroll updates the bankroll independently of ticks.
func (s *Sizer) SetBankroll(b float64) {
	if b > 0 {
		s.bankroll = b
	}
}

func (s *Sizer) Bankroll() float64 { return s.bankroll }

func (s *Sizer) Risk() *RiskManager { return s.risk }

// Size computes the joint allocation for a batch. Individual Kelly
// fractions compose multiplicatively with the global and attractor
// multipliers, get capped per bet, then the whole set is scaled down
// if the correlation-penalized total exceeds maxTotalExposure.
// Finally each candidate runs the risk gates in order.
func (s *Sizer) Size(inputs []Input) Result {
	var res Result

	type candidate struct {
		in       Input
		fraction float64
		kelly    domain.KellyResult
	}
	var candidates []candidate
	var opps []domain.Opportunity

	for _, in := range inputs {
		k := domain.Kelly(in.Opportunity.ModelProbability, in.Opportunity.AmericanOdds)
		f := k.Adjusted(s.cfg.KellyMultiplier) * clamp01(in.AttractorMultiplier)
		if f <= 0 {
			continue
		}
		if f > s.cfg.MaxBetFraction {
			f = s.cfg.MaxBetFraction
		}
		candidates = append(candidates, candidate{in: in, fraction: f, kelly: k})
		opps = append(opps, in.Opportunity)
	}
	if len(candidates) == 0 {
		return res
	}

	cov := BuildCovariance(opps, s.cfg.SameGameCorrelation, s.cross)
	penalty := 1.0
	if err := cov.Validate(); err != nil {
		res.Independent = true
		s.log.Warn("covariance rejected, sizing independently", "error", err)
	} else if rho := cov.MeanCorrelation(); rho > 0 {
		penalty = 1 + rho
	}

	var total float64
	for _, c := range candidates {
		total += c.fraction
	}
	if adjusted := total * penalty; adjusted > s.cfg.MaxTotalExposure {
		scale := s.cfg.MaxTotalExposure / adjusted
		for i := range candidates {
			candidates[i].fraction *= scale
		}
	}

	for _, c := range candidates {
		gate := s.risk.Evaluate(c.in.Opportunity.GameID, c.fraction, c.kelly.Edge, c.in.Opportunity.Confidence)
		if !gate.Approved {
			res.Rejections = append(res.Rejections, fmt.Sprintf("%s: %s", c.in.Opportunity.GameID, gate.Reason))
			continue
		}
		s.risk.Commit(c.in.Opportunity.GameID, gate.Fraction)
		res.Allocations = append(res.Allocations, domain.Allocation{
			GameID:       c.in.Opportunity.GameID,
			Fraction:     gate.Fraction,
			DollarAmount: s.dollars(gate.Fraction),
			Edge:         c.kelly.Edge,
			Confidence:   c.in.Opportunity.Confidence,
		})
	}
	return res
}

// dollars converts a fraction of bankroll into a cent-rounded USD
// amount.
func (s *Sizer) dollars(fraction float64) float64 {
	amount := decimal.NewFromFloat(s.bankroll).Mul(decimal.NewFromFloat(fraction))
	return amount.Round(2).InexactFloat64()
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

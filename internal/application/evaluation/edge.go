package evaluation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EdgeValidationResult says whether the realized results support a
// genuine edge, or whether the record is indistinguishable from
// variance.
type EdgeValidationResult struct {
	HasEdge        bool
	ROI            float64
	EdgeCILow      float64
	EdgeCIHigh     float64
	TStat          float64
	PValueProfit   float64
	CLVMean        float64
	PValueCLV      float64
	Confidence     float64
	Bets           int
	Recommendation string
}

type betRecord struct {
	stake          float64
	profit         float64
	modelProb      float64
	impliedProb    float64
	closingImplied float64
	hasClosing     bool
}

// EdgeValidator accumulates settled bets and runs the statistical
// tests: one-sample t-test on profits, closing line value and a
// bootstrap interval on ROI.
type EdgeValidator struct {
	minBets int
	bets    []betRecord
	rng     *rand.Rand
}

// NewEdgeValidator seeds the bootstrap deterministically so repeated
// validations over the same record agree.
func NewEdgeValidator(seed int64) *EdgeValidator {
	return &EdgeValidator{
		minBets: 200,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// RecordBet stores one settled bet. closingDecimalOdds of 0 means the
// closing line was not captured.
func (v *EdgeValidator) RecordBet(stake, profit, modelProb, impliedProb, closingDecimalOdds float64) {
	rec := betRecord{
		stake:       stake,
		profit:      profit,
		modelProb:   modelProb,
		impliedProb: impliedProb,
	}
	if closingDecimalOdds > 0 {
		rec.closingImplied = 1 / closingDecimalOdds
		rec.hasClosing = true
	}
	v.bets = append(v.bets, rec)
}

func (v *EdgeValidator) Len() int { return len(v.bets) }

// Validate runs the full test battery. Below minBets it refuses to
// conclude anything.
func (v *EdgeValidator) Validate(bootstrapIterations int) EdgeValidationResult {
	if len(v.bets) < v.minBets {
		return EdgeValidationResult{
			PValueProfit:   1,
			PValueCLV:      1,
			Bets:           len(v.bets),
			Recommendation: fmt.Sprintf("need at least %d settled bets, have %d", v.minBets, len(v.bets)),
		}
	}

	profits := make([]float64, len(v.bets))
	stakes := make([]float64, len(v.bets))
	var totalProfit, totalStaked float64
	for i, b := range v.bets {
		profits[i] = b.profit
		stakes[i] = b.stake
		totalProfit += b.profit
		totalStaked += b.stake
	}
	roi := totalProfit / totalStaked

	tStat, pProfit := tTestZero(profits)

	var clvs []float64
	for _, b := range v.bets {
		if b.hasClosing {
			clvs = append(clvs, b.closingImplied-b.impliedProb)
		}
	}
	var clvMean float64
	pCLV := 1.0
	if len(clvs) > 0 {
		clvMean = stat.Mean(clvs, nil)
		_, pCLV = tTestZero(clvs)
	}

	rois := make([]float64, bootstrapIterations)
	for it := 0; it < bootstrapIterations; it++ {
		var bp, bs float64
		for range v.bets {
			i := v.rng.Intn(len(v.bets))
			bp += profits[i]
			bs += stakes[i]
		}
		rois[it] = bp / bs
	}
	sort.Float64s(rois)
	ciLow := percentile(rois, 2.5)
	ciHigh := percentile(rois, 97.5)

	profitSignificant := pProfit < 0.05 && roi > 0
	clvPositive := len(clvs) > 0 && clvMean > 0.01
	modelBetter := meanModelAdvantage(v.bets) > 0.01
	hasEdge := profitSignificant && (clvPositive || modelBetter)

	var rec string
	switch {
	case hasEdge:
		rec = fmt.Sprintf("edge validated: ROI %.2f%% with p=%.3f", roi*100, pProfit)
	case clvMean < 0:
		rec = "negative closing line value, the market moves against these bets"
	default:
		rec = "results are not distinguishable from variance, keep collecting data"
	}

	return EdgeValidationResult{
		HasEdge:        hasEdge,
		ROI:            roi,
		EdgeCILow:      ciLow,
		EdgeCIHigh:     ciHigh,
		TStat:          tStat,
		PValueProfit:   pProfit,
		CLVMean:        clvMean,
		PValueCLV:      pCLV,
		Confidence:     1 - math.Min(pProfit, pCLV),
		Bets:           len(v.bets),
		Recommendation: rec,
	}
}

// tTestZero is a two-sided one-sample t-test against mean 0.
func tTestZero(xs []float64) (tStat, pValue float64) {
	n := float64(len(xs))
	if n < 2 {
		return 0, 1
	}
	mean := stat.Mean(xs, nil)
	sd := stat.StdDev(xs, nil)
	if sd == 0 {
		if mean == 0 {
			return 0, 1
		}
		if mean > 0 {
			return math.Inf(1), 0
		}
		return math.Inf(-1), 0
	}
	tStat = mean / (sd / math.Sqrt(n))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	pValue = 2 * (1 - tDist.CDF(math.Abs(tStat)))
	return tStat, pValue
}

func meanModelAdvantage(bets []betRecord) float64 {
	var sum float64
	for _, b := range bets {
		sum += b.modelProb - b.impliedProb
	}
	return sum / float64(len(bets))
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

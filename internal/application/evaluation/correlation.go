package evaluation

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CorrelationEstimate is an empirical correlation with its confidence
// interval and a trust level derived from sample size and
// significance.
type CorrelationEstimate struct {
	Correlation   float64
	SampleSize    int
	StandardError float64
	CILow, CIHigh float64
	PValue        float64
	Significant   bool
	TrustLevel    float64
}

type gameRecord struct {
	gameID   string
	date     time.Time
	outcomes map[string]bool
}

// CorrelationEstimator replaces assumed correlation constants with
// values computed from recorded outcomes. It also implements the
// sizing CorrelationSource contract via trust-weighted estimates.
type CorrelationEstimator struct {
	minSamples int
	games      []gameRecord

	cache      map[[2]string]CorrelationEstimate
	cacheValid bool
}

func NewCorrelationEstimator() *CorrelationEstimator {
	return &CorrelationEstimator{
		minSamples: 50,
		cache:      make(map[[2]string]CorrelationEstimate),
	}
}

// RecordGameOutcomes stores all settled bet outcomes for one game.
func (e *CorrelationEstimator) RecordGameOutcomes(gameID string, outcomes map[string]bool, date time.Time) {
	copied := make(map[string]bool, len(outcomes))
	for k, v := range outcomes {
		copied[k] = v
	}
	e.games = append(e.games, gameRecord{gameID: gameID, date: date, outcomes: copied})
	e.cacheValid = false
}

func (e *CorrelationEstimator) Games() int { return len(e.games) }

// Estimate computes the Pearson correlation between two bet types
// over games where both settled, with a Fisher-z confidence interval.
func (e *CorrelationEstimator) Estimate(betA, betB string) CorrelationEstimate {
	key := cacheKey(betA, betB)
	if e.cacheValid {
		if est, ok := e.cache[key]; ok {
			return est
		}
	} else {
		e.cache = make(map[[2]string]CorrelationEstimate)
		e.cacheValid = true
	}

	var xs, ys []float64
	for _, g := range e.games {
		a, okA := g.outcomes[betA]
		b, okB := g.outcomes[betB]
		if !okA || !okB {
			continue
		}
		xs = append(xs, asFloat(a))
		ys = append(ys, asFloat(b))
	}
	n := len(xs)

	if n < e.minSamples {
		est := CorrelationEstimate{SampleSize: n, StandardError: 1, CILow: -1, CIHigh: 1, PValue: 1}
		e.cache[key] = est
		return est
	}
	if stat.StdDev(xs, nil) == 0 || stat.StdDev(ys, nil) == 0 {
		// degenerate series, no correlation computable
		est := CorrelationEstimate{SampleSize: n, StandardError: 0.5, CILow: -0.5, CIHigh: 0.5, PValue: 1, TrustLevel: 0.3}
		e.cache[key] = est
		return est
	}

	r := stat.Correlation(xs, ys, nil)
	fn := float64(n)

	z := math.Atanh(r)
	seZ := 1 / math.Sqrt(fn-3)
	ciLow := math.Tanh(z - 1.96*seZ)
	ciHigh := math.Tanh(z + 1.96*seZ)
	se := math.Sqrt((1 - r*r) / (fn - 2))

	// two-sided t-test on the correlation coefficient
	tStat := r * math.Sqrt((fn-2)/(1-r*r))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: fn - 2}
	pValue := 2 * (1 - tDist.CDF(math.Abs(tStat)))
	significant := pValue < 0.05

	est := CorrelationEstimate{
		Correlation:   r,
		SampleSize:    n,
		StandardError: se,
		CILow:         ciLow,
		CIHigh:        ciHigh,
		PValue:        pValue,
		Significant:   significant,
		TrustLevel:    trustLevel(n, significant),
	}
	e.cache[key] = est
	return est
}

// Correlation satisfies the sizing CorrelationSource contract with a
// trust-weighted estimate: thin samples shrink towards independence.
func (e *CorrelationEstimator) Correlation(betA, betB string) float64 {
	est := e.Estimate(betA, betB)
	return est.TrustLevel * est.Correlation
}

// Matrix builds the empirical correlation and trust matrices for a
// set of bet types.
func (e *CorrelationEstimator) Matrix(betTypes []string) (corr, trust *mat.Dense) {
	n := len(betTypes)
	corr = mat.NewDense(n, n, nil)
	trust = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		corr.Set(i, i, 1)
		trust.Set(i, i, 1)
		for j := i + 1; j < n; j++ {
			est := e.Estimate(betTypes[i], betTypes[j])
			corr.Set(i, j, est.Correlation)
			corr.Set(j, i, est.Correlation)
			trust.Set(i, j, est.TrustLevel)
			trust.Set(j, i, est.TrustLevel)
		}
	}
	return corr, trust
}

func trustLevel(n int, significant bool) float64 {
	switch {
	case n >= 500 && significant:
		return 0.95
	case n >= 200 && significant:
		return 0.85
	case n >= 100 && significant:
		return 0.70
	case n >= 50:
		return 0.50
	default:
		return 0.30
	}
}

func cacheKey(a, b string) [2]string {
	pair := []string{a, b}
	sort.Strings(pair)
	return [2]string{pair[0], pair[1]}
}

func asFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

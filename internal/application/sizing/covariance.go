package sizing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// CorrelationSource supplies cross-game correlations. Pairs without
// an explicit estimate return 0.
type CorrelationSource interface {
	Correlation(gameA, gameB string) float64
}

// Covariance is the pairwise risk model for one sizing batch. Entries
// are covariances built from the per-opportunity variance proxy and a
// correlation structure: same-game pairs share a fixed high constant,
// cross-game pairs come from the source or default to independent.
type Covariance struct {
	Matrix *mat.Dense
	Games  []string
}

// BuildCovariance assembles the matrix for a batch. The diagonal is
// the Bernoulli variance proxy p(1−p) of each model probability.
func BuildCovariance(opps []domain.Opportunity, sameGame float64, cross CorrelationSource) Covariance {
	n := len(opps)
	m := mat.NewDense(n, n, nil)

	variances := make([]float64, n)
	for i, o := range opps {
		p := o.ModelProbability
		v := p * (1 - p)
		if v <= 0 || math.IsNaN(v) {
			v = 1e-6
		}
		variances[i] = v
		m.Set(i, i, v)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rho := 0.0
			if opps[i].GameID == opps[j].GameID {
				rho = sameGame
			} else if cross != nil {
				rho = cross.Correlation(opps[i].GameID, opps[j].GameID)
			}
			cov := rho * math.Sqrt(variances[i]*variances[j])
			m.Set(i, j, cov)
			m.Set(j, i, cov)
		}
	}

	games := make([]string, n)
	for i, o := range opps {
		games[i] = o.GameID
	}
	return Covariance{Matrix: m, Games: games}
}

// Validate rejects malformed matrices: asymmetry, non-positive
// diagonal, implied correlations outside [-1,1] or a factorization
// failure. Callers fall back to independent sizing on error instead
// of propagating a bad matrix.
func (c Covariance) Validate() error {
	n, cols := c.Matrix.Dims()
	if n != cols {
		return fmt.Errorf("sizing.Validate: matrix %dx%d is not square", n, cols)
	}
	for i := 0; i < n; i++ {
		if d := c.Matrix.At(i, i); d <= 0 || math.IsNaN(d) {
			return fmt.Errorf("sizing.Validate: non-positive diagonal at %d: %v", i, d)
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := c.Matrix.At(i, j), c.Matrix.At(j, i)
			if a != b {
				return fmt.Errorf("sizing.Validate: asymmetry at (%d,%d)", i, j)
			}
			rho := a / math.Sqrt(c.Matrix.At(i, i)*c.Matrix.At(j, j))
			if math.IsNaN(rho) || rho < -1 || rho > 1 {
				return fmt.Errorf("sizing.Validate: implied correlation %.3f outside [-1,1] at (%d,%d)", rho, i, j)
			}
		}
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, c.Matrix.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return fmt.Errorf("sizing.Validate: matrix is not positive semidefinite")
	}
	return nil
}

// MeanCorrelation returns the average implied off-diagonal
// correlation, used as the joint-exposure penalty. 0 for batches of
// one.
func (c Covariance) MeanCorrelation() float64 {
	n, _ := c.Matrix.Dims()
	if n < 2 {
		return 0
	}
	var total float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += c.Matrix.At(i, j) / math.Sqrt(c.Matrix.At(i, i)*c.Matrix.At(j, j))
			pairs++
		}
	}
	return total / float64(pairs)
}

package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/alejandrodnm/geobet/internal/domain"
)

type stubCorr float64

func (s stubCorr) Correlation(a, b string) float64 { return float64(s) }

func opp(gameID string, modelProb float64) domain.Opportunity {
	return domain.Opportunity{
		GameID:             gameID,
		ModelProbability:   modelProb,
		ImpliedProbability: 0.5,
		Confidence:         0.7,
		AmericanOdds:       100,
		BetType:            domain.BetMoneyline,
	}
}

func TestBuildCovariance_Symmetric(t *testing.T) {
	opps := []domain.Opportunity{opp("g1", 0.6), opp("g1", 0.55), opp("g2", 0.58)}
	cov := BuildCovariance(opps, 0.7, stubCorr(0.2))

	n, _ := cov.Matrix.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, cov.Matrix.At(i, j), cov.Matrix.At(j, i))
		}
	}
}

func TestBuildCovariance_SameGamePositive_CrossGameZero(t *testing.T) {
	opps := []domain.Opportunity{opp("g1", 0.6), opp("g1", 0.55), opp("g2", 0.58)}
	cov := BuildCovariance(opps, 0.7, nil)

	assert.Greater(t, cov.Matrix.At(0, 1), 0.0) // mismo juego
	assert.Equal(t, 0.0, cov.Matrix.At(0, 2))   // juegos distintos sin fuente
	assert.Equal(t, 0.0, cov.Matrix.At(1, 2))
}

func TestCovariance_Validate_AcceptsWellFormed(t *testing.T) {
	opps := []domain.Opportunity{opp("g1", 0.6), opp("g1", 0.55), opp("g2", 0.58)}
	cov := BuildCovariance(opps, 0.7, stubCorr(0.3))
	assert.NoError(t, cov.Validate())
}

func TestCovariance_Validate_RejectsMalformed(t *testing.T) {
	asym := Covariance{Matrix: mat.NewDense(2, 2, []float64{0.25, 0.1, 0.2, 0.25})}
	assert.Error(t, asym.Validate())

	badDiag := Covariance{Matrix: mat.NewDense(2, 2, []float64{-0.1, 0, 0, 0.25})}
	assert.Error(t, badDiag.Validate())

	// covarianza 0.5 sobre varianzas 0.25 → correlación implícita 2
	badCorr := Covariance{Matrix: mat.NewDense(2, 2, []float64{0.25, 0.5, 0.5, 0.25})}
	assert.Error(t, badCorr.Validate())
}

func TestCovariance_Validate_RejectsNonPSD(t *testing.T) {
	// correlaciones por pares (0.9, 0.9, -0.9) son incompatibles:
	// simétrica y acotada pero no semidefinida positiva
	v := 0.25
	c := 0.9 * v
	m := mat.NewDense(3, 3, []float64{
		v, c, c,
		c, v, -c,
		c, -c, v,
	})
	cov := Covariance{Matrix: m}
	assert.Error(t, cov.Validate())
}

func TestCovariance_MeanCorrelation(t *testing.T) {
	single := BuildCovariance([]domain.Opportunity{opp("g1", 0.6)}, 0.7, nil)
	assert.Equal(t, 0.0, single.MeanCorrelation())

	pair := BuildCovariance([]domain.Opportunity{opp("g1", 0.6), opp("g1", 0.6)}, 0.7, nil)
	require.NoError(t, pair.Validate())
	assert.InDelta(t, 0.7, pair.MeanCorrelation(), 0.0001)
}

package evaluation

import (
	"fmt"
	"strings"
)

// Trust aggregation thresholds.
const (
	trustMinCalibrationSamples = 100
	trustMinCorrelationGames   = 100
	trustBootstrapIterations   = 1000

	// below this many games the correlation estimates stay assumed,
	// not empirical
	empiricalCorrelationGames = 50
)

// SystemTrust is the aggregate verdict over the three validators:
// whether the model's probabilities, its realized edge and its
// correlation coverage together justify sizing real money.
type SystemTrust struct {
	Trustworthy           bool
	Calibration           CalibrationResult
	Edge                  EdgeValidationResult
	GamesRecorded         int
	EmpiricalCorrelations bool
	Issues                []string
	Recommendation        string
}

// System bundles the calibration validator, the correlation estimator
// and the edge validator behind a single entry point. The caller
// records outcomes through the accessors and asks for the combined
// verdict with Trust.
type System struct {
	calibration *CalibrationValidator
	correlation *CorrelationEstimator
	edge        *EdgeValidator
}

// NewSystem builds the three validators. The seed drives the edge
// validator's bootstrap.
func NewSystem(seed int64) *System {
	return &System{
		calibration: NewCalibrationValidator(),
		correlation: NewCorrelationEstimator(),
		edge:        NewEdgeValidator(seed),
	}
}

func (s *System) Calibration() *CalibrationValidator { return s.calibration }

func (s *System) Correlations() *CorrelationEstimator { return s.correlation }

func (s *System) Edge() *EdgeValidator { return s.edge }

// Trust runs every validator and collects the blocking issues. The
// system is trustworthy only when calibration, edge and correlation
// coverage all pass; any single failure blocks.
func (s *System) Trust() SystemTrust {
	cal := s.calibration.Test(trustMinCalibrationSamples)
	edge := s.edge.Validate(trustBootstrapIterations)
	games := s.correlation.Games()

	var issues []string
	if !cal.Trustworthy {
		issues = append(issues, "calibration: "+cal.Recommendation)
	}
	if !edge.HasEdge {
		issues = append(issues, "edge: "+edge.Recommendation)
	}
	if games < trustMinCorrelationGames {
		issues = append(issues, fmt.Sprintf("correlations: only %d games recorded", games))
	}

	trustworthy := len(issues) == 0
	rec := "system is trustworthy for betting"
	if !trustworthy {
		rec = fmt.Sprintf("fix %d issues before betting: %s", len(issues), strings.Join(issues, "; "))
	}

	return SystemTrust{
		Trustworthy:           trustworthy,
		Calibration:           cal,
		Edge:                  edge,
		GamesRecorded:         games,
		EmpiricalCorrelations: games >= empiricalCorrelationGames,
		Issues:                issues,
		Recommendation:        rec,
	}
}

// Package evaluation answers whether the model deserves its sizing:
// probability calibration, empirically estimated outcome correlations
// and statistical validation of the realized edge.
package evaluation

import (
	"fmt"
	"math"
)

// CalibrationLevel buckets the expected calibration error.
type CalibrationLevel string

const (
	CalibrationExcellent  CalibrationLevel = "excellent"
	CalibrationGood       CalibrationLevel = "good"
	CalibrationAcceptable CalibrationLevel = "acceptable"
	CalibrationPoor       CalibrationLevel = "poor"
	CalibrationUnusable   CalibrationLevel = "unusable"
)

// CalibrationBin is one probability bucket of the reliability diagram.
type CalibrationBin struct {
	Bin           int
	Low, High     float64
	Samples       int
	MeanPredicted float64
	MeanActual    float64
	Error         float64
	CILow, CIHigh float64
	Calibrated    bool
}

// CalibrationResult summarizes how well predicted probabilities match
// realized frequencies.
type CalibrationResult struct {
	ECE            float64
	MCE            float64
	BrierScore     float64
	LogLoss        float64
	Predictions    int
	Bins           []CalibrationBin
	Level          CalibrationLevel
	Trustworthy    bool
	Recommendation string
}

type prediction struct {
	predicted float64
	actual    float64
}

// CalibrationValidator accumulates settled predictions and tests
// whether the model's probabilities can back Kelly sizing.
type CalibrationValidator struct {
	nBins     int
	minPerBin int
	preds     []prediction
}

func NewCalibrationValidator() *CalibrationValidator {
	return &CalibrationValidator{nBins: 10, minPerBin: 30}
}

// Record stores one settled prediction.
func (v *CalibrationValidator) Record(predicted float64, won bool) {
	actual := 0.0
	if won {
		actual = 1
	}
	v.preds = append(v.preds, prediction{predicted: predicted, actual: actual})
}

func (v *CalibrationValidator) Len() int { return len(v.preds) }

// Test computes ECE, MCE, Brier score and log loss over the recorded
// history. Below minSamples everything reports as unusable rather
// than pretending precision.
func (v *CalibrationValidator) Test(minSamples int) CalibrationResult {
	if len(v.preds) < minSamples {
		return CalibrationResult{
			ECE:            1,
			MCE:            1,
			BrierScore:     1,
			LogLoss:        10,
			Predictions:    len(v.preds),
			Level:          CalibrationUnusable,
			Recommendation: fmt.Sprintf("need at least %d samples, have %d", minSamples, len(v.preds)),
		}
	}

	var brier, logLoss float64
	const eps = 1e-15
	for _, p := range v.preds {
		d := p.predicted - p.actual
		brier += d * d
		clipped := math.Min(math.Max(p.predicted, eps), 1-eps)
		logLoss -= p.actual*math.Log(clipped) + (1-p.actual)*math.Log(1-clipped)
	}
	n := float64(len(v.preds))
	brier /= n
	logLoss /= n

	var bins []CalibrationBin
	var ece, mce float64
	for i := 0; i < v.nBins; i++ {
		low := float64(i) / float64(v.nBins)
		high := float64(i+1) / float64(v.nBins)
		last := i == v.nBins-1

		var sumPred, sumActual float64
		var count int
		for _, p := range v.preds {
			if p.predicted >= low && (p.predicted < high || (last && p.predicted <= high)) {
				sumPred += p.predicted
				sumActual += p.actual
				count++
			}
		}
		if count < v.minPerBin {
			continue
		}

		meanPred := sumPred / float64(count)
		meanActual := sumActual / float64(count)
		binErr := math.Abs(meanPred - meanActual)
		ece += float64(count) / n * binErr
		mce = math.Max(mce, binErr)

		se := math.Sqrt(meanActual * (1 - meanActual) / float64(count))
		ciLow := math.Max(0, meanActual-1.96*se)
		ciHigh := math.Min(1, meanActual+1.96*se)
		bins = append(bins, CalibrationBin{
			Bin:           i,
			Low:           low,
			High:          high,
			Samples:       count,
			MeanPredicted: meanPred,
			MeanActual:    meanActual,
			Error:         binErr,
			CILow:         ciLow,
			CIHigh:        ciHigh,
			Calibrated:    meanPred >= ciLow && meanPred <= ciHigh,
		})
	}

	level := levelFor(ece)
	trustworthy := ece < 0.05 && mce < 0.10

	var rec string
	switch {
	case trustworthy:
		rec = fmt.Sprintf("model is well-calibrated (ECE=%.3f), safe for Kelly sizing", ece)
	case ece < 0.10:
		rec = fmt.Sprintf("moderate calibration error (ECE=%.3f), reduce the Kelly multiplier", ece)
	default:
		rec = fmt.Sprintf("poorly calibrated (ECE=%.3f), do not size from these probabilities", ece)
	}

	return CalibrationResult{
		ECE:            ece,
		MCE:            mce,
		BrierScore:     brier,
		LogLoss:        logLoss,
		Predictions:    len(v.preds),
		Bins:           bins,
		Level:          level,
		Trustworthy:    trustworthy,
		Recommendation: rec,
	}
}

// Adjust shifts a predicted probability towards the historical
// frequency of its bin. With thin history it returns the input
// untouched.
func (v *CalibrationValidator) Adjust(predicted float64) float64 {
	if len(v.preds) < 100 {
		return predicted
	}

	idx := int(predicted * float64(v.nBins))
	if idx >= v.nBins {
		idx = v.nBins - 1
	}
	low := float64(idx) / float64(v.nBins)
	high := float64(idx+1) / float64(v.nBins)

	var sumPred, sumActual float64
	var count int
	for _, p := range v.preds {
		if p.predicted >= low && p.predicted < high {
			sumPred += p.predicted
			sumActual += p.actual
			count++
		}
	}
	if count < v.minPerBin {
		return predicted
	}

	adjusted := predicted + (sumActual-sumPred)/float64(count)
	return math.Min(math.Max(adjusted, 0.01), 0.99)
}

func levelFor(ece float64) CalibrationLevel {
	switch {
	case ece < 0.02:
		return CalibrationExcellent
	case ece < 0.05:
		return CalibrationGood
	case ece < 0.10:
		return CalibrationAcceptable
	case ece < 0.15:
		return CalibrationPoor
	default:
		return CalibrationUnusable
	}
}

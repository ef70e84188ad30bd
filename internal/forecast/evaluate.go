package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scores summarizes how well predictions match actual values.
type Scores struct {
	MAE  float64
	RMSE float64
	R2   float64
}

// Evaluate scores predictions against actual values of the same length.
func Evaluate(predictions, actual []float64) (Scores, error) {
	if len(predictions) != len(actual) {
		return Scores{}, fmt.Errorf("got %d predictions for %d values", len(predictions), len(actual))
	}
	if len(actual) == 0 {
		return Scores{}, fmt.Errorf("nothing to evaluate")
	}

	n := float64(len(actual))
	return Scores{
		MAE:  floats.Distance(predictions, actual, 1) / n,
		RMSE: floats.Distance(predictions, actual, 2) / math.Sqrt(n),
		R2:   stat.RSquaredFrom(predictions, actual, nil),
	}, nil
}

// WeightedMAE is the mean absolute error where every value weighs half as
// much as the one halfLife positions after it. The last value weighs one.
func WeightedMAE(predictions, actual []float64, halfLife float64) (float64, error) {
	if len(predictions) != len(actual) {
		return 0, fmt.Errorf("got %d predictions for %d values", len(predictions), len(actual))
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("nothing to evaluate")
	}
	if halfLife <= 0 {
		return 0, fmt.Errorf("invalid half-life %g", halfLife)
	}

	decay := math.Pow(0.5, 1/halfLife)
	diffs := make([]float64, len(actual))
	weights := make([]float64, len(actual))
	for i := range actual {
		diffs[i] = math.Abs(predictions[i] - actual[i])
		weights[i] = math.Pow(decay, float64(len(actual)-1-i))
	}
	return stat.Mean(diffs, weights), nil
}

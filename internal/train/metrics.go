package train

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tablewise/salesight/internal/tree"
)

// R2 is the coefficient of determination of predicted vs actual. A
// constant actual series has no variance to explain; by convention
// that degenerate case scores 0.
func R2(predicted, actual []float64) float64 {
	r2 := stat.RSquaredFrom(predicted, actual, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0
	}
	return r2
}

// MSE is the mean squared error.
func MSE(predicted, actual []float64) float64 {
	var sum float64
	for i := range predicted {
		d := predicted[i] - actual[i]
		sum += d * d
	}
	return sum / float64(len(predicted))
}

// MAE is the mean absolute error.
func MAE(predicted, actual []float64) float64 {
	var sum float64
	for i := range predicted {
		sum += math.Abs(predicted[i] - actual[i])
	}
	return sum / float64(len(predicted))
}

// evaluate scores a fitted model on a set.
func evaluate(m tree.Model, s *Set) (r2, mse, mae float64) {
	pred := make([]float64, len(s.Y))
	for i, row := range s.X {
		pred[i] = m.Predict(row)
	}
	return R2(pred, s.Y), MSE(pred, s.Y), MAE(pred, s.Y)
}

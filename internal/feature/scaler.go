package feature

import (
	"gonum.org/v1/gonum/stat"

	"github.com/rotisserie/eris"
)

// Scaler standardizes feature columns to zero mean and unit variance.
// Tree ensembles are split-point invariant to affine rescaling, so the
// default pipeline skips it; the scaler exists for Scale=true runs and
// travels inside the artifact so prediction applies the training-time
// parameters, never refit ones.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitScaler computes per-column mean and standard deviation from the
// training rows. Constant columns get std 1 so transform leaves them
// centered but unscaled.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, eris.New("feature: fit scaler on empty matrix")
	}
	cols := len(rows[0])
	s := &Scaler{
		Means: make([]float64, cols),
		Stds:  make([]float64, cols),
	}
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		s.Means[j] = stat.Mean(col, nil)
		sd := 0.0
		if len(col) > 1 {
			sd = stat.StdDev(col, nil)
		}
		if sd == 0 {
			sd = 1
		}
		s.Stds[j] = sd
	}
	return s, nil
}

// Transform standardizes rows in place using the fitted parameters.
func (s *Scaler) Transform(rows [][]float64) error {
	for _, r := range rows {
		if len(r) != len(s.Means) {
			return eris.Errorf("feature: scaler fitted on %d columns, row has %d", len(s.Means), len(r))
		}
		for j := range r {
			r[j] = (r[j] - s.Means[j]) / s.Stds[j]
		}
	}
	return nil
}

// TransformRow standardizes a single row, returning a copy.
func (s *Scaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Means) {
		return nil, eris.Errorf("feature: scaler fitted on %d columns, row has %d", len(s.Means), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}

package feature

import "github.com/tablewise/salesight/internal/model"

// computeTargets fills the delta target y_t = sales_t − sales_{t−1}
// for one entity's rows. The first row has no prior day, so its target
// is undefined rather than zero; hasTarget flags the distinction and
// training filters on it. The percentage variant is reporting-only.
func computeTargets(obs []model.Observation) (delta, pct []float64, hasTarget []bool) {
	n := len(obs)
	delta = make([]float64, n)
	pct = make([]float64, n)
	hasTarget = make([]bool, n)
	for i := 1; i < n; i++ {
		prev := obs[i-1].Sales
		delta[i] = obs[i].Sales - prev
		if prev != 0 {
			pct[i] = delta[i] / prev * 100
		}
		hasTarget[i] = true
	}
	return delta, pct, hasTarget
}

package feature

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tablewise/salesight/internal/model"
)

// aggregateBuilder derives per-entity profile statistics joined onto
// every row, plus "relative to own history" ratios.
//
// In AggregateExpanding mode (the default) the statistics for row i use
// rows 0..i-1 only. AggregateFullHistory computes them once over the
// entity's entire series, which folds rows dated after i into row i's
// features; it is retained strictly as an opt-in for measuring how much
// that historical shortcut inflates accuracy.
type aggregateBuilder struct {
	mode AggregateMode
}

func (aggregateBuilder) names() []string {
	return []string{
		"entity_sales_mean", "entity_sales_std", "entity_sales_median",
		"entity_rating_mean", "entity_rating_std",
		"sales_vs_entity_mean", "rating_vs_entity_mean",
	}
}

func (b aggregateBuilder) compute(obs []model.Observation) [][]float64 {
	n := len(obs)
	sales := make([]float64, n)
	rating := make([]float64, n)
	for i, o := range obs {
		sales[i] = o.Sales
		rating[i] = o.Rating
	}

	rows := make([][]float64, n)
	for i := range obs {
		var salesWin, ratingWin []float64
		if b.mode == AggregateFullHistory {
			salesWin, ratingWin = sales, rating
		} else {
			salesWin, ratingWin = sales[:i], rating[:i]
		}

		sMean := meanOrZero(salesWin)
		sStd := stdOrZero(salesWin)
		sMed := medianOrZero(salesWin)
		rMean := meanOrZero(ratingWin)
		rStd := stdOrZero(ratingWin)

		// The ratio numerators are the lag-1 values: row i's own sales
		// never appear in its features, in either mode.
		salesVs := 0.0
		ratingVs := 0.0
		if i >= 1 {
			if sMean != 0 {
				salesVs = sales[i-1] / sMean
			}
			if rMean != 0 {
				ratingVs = rating[i-1] / rMean
			}
		}

		rows[i] = []float64{sMean, sStd, sMed, rMean, rStd, salesVs, ratingVs}
	}
	return rows
}

func meanOrZero(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	return stat.Mean(s, nil)
}

func stdOrZero(s []float64) float64 {
	if len(s) < 2 {
		return 0
	}
	return stat.StdDev(s, nil)
}

func medianOrZero(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sorted := make([]float64, len(s))
	copy(sorted, s)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

package feature

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/tablewise/salesight/internal/model"
)

// temporalBuilder derives lag, rolling and difference features from an
// entity's sales and rating history.
//
// Every statistic here is computed on the series shifted forward one
// row: the value attached to row i is a function of rows 0..i-1 only.
// That shift is the load-bearing leakage guard for the whole pipeline —
// a rolling mean that includes row i would hand the model the target.
type temporalBuilder struct {
	cfg Config
}

func (b temporalBuilder) names() []string {
	var out []string
	out = append(out, "lag_1_rating", "lag_1_orders", "lag_1_cancel_rate")
	for _, l := range b.cfg.Lags {
		out = append(out, fmt.Sprintf("lag_%d_sales", l))
	}
	for _, w := range b.cfg.RollingWindows {
		out = append(out, fmt.Sprintf("rolling_mean_%d", w))
	}
	stdW := b.cfg.maxRollingWindow()
	out = append(out,
		fmt.Sprintf("rolling_std_%d", stdW),
		"delta_sales_prev",
		"pct_change_sales",
		fmt.Sprintf("sales_trend_%d", b.cfg.TrendWindow),
		"volatility_ratio",
		"rating_change_prev",
		fmt.Sprintf("rating_mean_%d", stdW),
	)
	return out
}

// compute returns one feature block row per observation. Rows without
// enough history for a given statistic get the neutral zero default;
// callers that need non-degenerate history filter on RowRef.HasHistory.
func (b temporalBuilder) compute(obs []model.Observation) [][]float64 {
	n := len(obs)
	sales := make([]float64, n)
	rating := make([]float64, n)
	for i, o := range obs {
		sales[i] = o.Sales
		rating[i] = o.Rating
	}

	stdW := b.cfg.maxRollingWindow()
	rows := make([][]float64, n)
	for i := range obs {
		var row []float64

		// Lagged same-entity covariates.
		row = append(row, lagValue(rating, i, 1), lagOrders(obs, i), lagCancel(obs, i))

		for _, l := range b.cfg.Lags {
			row = append(row, lagValue(sales, i, l))
		}
		for _, w := range b.cfg.RollingWindows {
			row = append(row, trailingMean(sales, i, w))
		}

		rstd := trailingStd(sales, i, stdW)
		rmean := trailingMean(sales, i, stdW)
		lag1 := lagValue(sales, i, 1)
		lag2 := lagValue(sales, i, 2)

		// Both deltas come off the lagged series: lag1−lag2, never
		// sales[i]−lag1, which would reproduce the target.
		delta := 0.0
		pct := 0.0
		if i >= 2 {
			delta = lag1 - lag2
			if lag2 != 0 {
				pct = (lag1 - lag2) / lag2
			}
		}

		volRatio := 0.0
		if rmean != 0 {
			volRatio = rstd / rmean
		}

		ratingChange := 0.0
		if i >= 2 {
			ratingChange = rating[i-1] - rating[i-2]
		}

		row = append(row,
			rstd,
			delta,
			pct,
			trailingTrend(sales, i, b.cfg.TrendWindow),
			volRatio,
			ratingChange,
			trailingMean(rating, i, stdW),
		)
		rows[i] = row
	}
	return rows
}

func lagValue(s []float64, i, k int) float64 {
	if i < k {
		return 0
	}
	return s[i-k]
}

func lagOrders(obs []model.Observation, i int) float64 {
	if i < 1 {
		return 0
	}
	return obs[i-1].Orders
}

func lagCancel(obs []model.Observation, i int) float64 {
	if i < 1 {
		return 0
	}
	return obs[i-1].CancelRate
}

// trailingMean averages s[i-w .. i-1], shrinking the window near the
// start of the series. Row 0 has no history and returns 0.
func trailingMean(s []float64, i, w int) float64 {
	lo := i - w
	if lo < 0 {
		lo = 0
	}
	if lo == i {
		return 0
	}
	return stat.Mean(s[lo:i], nil)
}

// trailingStd is the sample standard deviation of s[i-w .. i-1];
// fewer than two prior points yields 0.
func trailingStd(s []float64, i, w int) float64 {
	lo := i - w
	if lo < 0 {
		lo = 0
	}
	if i-lo < 2 {
		return 0
	}
	return stat.StdDev(s[lo:i], nil)
}

// trailingTrend is the least-squares slope over s[i-w .. i-1] with
// x = 0,1,2,...; fewer than two prior points yields 0.
func trailingTrend(s []float64, i, w int) float64 {
	lo := i - w
	if lo < 0 {
		lo = 0
	}
	win := s[lo:i]
	if len(win) < 2 {
		return 0
	}
	xs := make([]float64, len(win))
	for j := range xs {
		xs[j] = float64(j)
	}
	_, slope := stat.LinearRegression(xs, win, nil, false)
	return slope
}

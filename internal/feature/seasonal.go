package feature

import (
	"math"
	"time"
)

// seasonalBuilder derives calendar features. Pure functions of the
// date: no entity dependence, no ordering dependence, leak-free by
// construction.
type seasonalBuilder struct{}

func (seasonalBuilder) names() []string {
	return []string{
		"weekday", "month", "quarter", "day_of_year",
		"weekday_sin", "weekday_cos", "month_sin", "month_cos",
		"is_weekend", "is_monday", "is_friday",
	}
}

func (seasonalBuilder) compute(date time.Time) []float64 {
	// Monday=0 .. Sunday=6, so the weekend indicator is wd >= 5.
	wd := (int(date.Weekday()) + 6) % 7
	month := int(date.Month())
	quarter := (month-1)/3 + 1

	return []float64{
		float64(wd),
		float64(month),
		float64(quarter),
		float64(date.YearDay()),
		math.Sin(2 * math.Pi * float64(wd) / 7),
		math.Cos(2 * math.Pi * float64(wd) / 7),
		math.Sin(2 * math.Pi * float64(month) / 12),
		math.Cos(2 * math.Pi * float64(month) / 12),
		boolToFloat(wd >= 5),
		boolToFloat(wd == 0),
		boolToFloat(wd == 4),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

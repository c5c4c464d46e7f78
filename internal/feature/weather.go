package feature

import "github.com/tablewise/salesight/internal/model"

// weatherBuilder bins the same-day exogenous weather covariates.
// Weather is known (forecast) before the day's sales close, so using
// the same-day value is not a leak.
type weatherBuilder struct{}

func (weatherBuilder) names() []string {
	return []string{
		"rain_category", "temp_category",
		"extreme_weather", "comfortable_weather",
	}
}

func (weatherBuilder) compute(o model.Observation) []float64 {
	return []float64{
		rainCategory(o.RainfallMM),
		tempCategory(o.TemperatureC),
		boolToFloat(o.RainfallMM > 20 || o.TemperatureC < 15 || o.TemperatureC > 35),
		boolToFloat(o.RainfallMM <= 2 && o.TemperatureC >= 20 && o.TemperatureC <= 30),
	}
}

// rainCategory: 0 dry, 1 light (≤5mm), 2 moderate (≤15mm), 3 heavy.
func rainCategory(mm float64) float64 {
	switch {
	case mm <= 0:
		return 0
	case mm <= 5:
		return 1
	case mm <= 15:
		return 2
	default:
		return 3
	}
}

// tempCategory: 0 cool (≤20°C), 1 mild (≤25°C), 2 warm (≤30°C), 3 hot.
func tempCategory(c float64) float64 {
	switch {
	case c <= 20:
		return 0
	case c <= 25:
		return 1
	case c <= 30:
		return 2
	default:
		return 3
	}
}

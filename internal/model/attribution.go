package model

import "time"

// Prediction is the answer to "how will sales change for this entity
// on this date". Delta is the model output; PredictedSales is the
// previous day's sales plus Delta. ActualSales is nil when the date is
// in the future relative to the dataset.
type Prediction struct {
	EntityID       string    `json:"entity_id"`
	Date           time.Time `json:"date"`
	Delta          float64   `json:"prediction"`
	PreviousSales  float64   `json:"previous_sales"`
	PredictedSales float64   `json:"predicted_sales"`
	ActualSales    *float64  `json:"actual_sales,omitempty"`
}

// FeatureContribution is one feature's signed share of a prediction.
type FeatureContribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Impact  float64 `json:"impact"`
}

// Attribution explains a single prediction: Baseline plus the sum of
// all contributions reconstructs Prediction within numerical tolerance.
// Contributions are ordered by descending absolute impact and may be
// truncated to a caller-chosen top N; TotalImpact always reflects the
// full (untruncated) sum so the round-trip identity survives ranking.
type Attribution struct {
	EntityID      string                `json:"entity_id"`
	Date          time.Time             `json:"date"`
	Prediction    float64               `json:"prediction"`
	Baseline      float64               `json:"baseline"`
	Contributions []FeatureContribution `json:"contributions"`
	TotalImpact   float64               `json:"total_impact"`
	Summary       string                `json:"summary,omitempty"`
}

// ImportanceEntry is one feature's global importance: the mean absolute
// contribution across a sample of explained rows.
type ImportanceEntry struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

package model

import (
	"fmt"
	"sort"
	"time"
)

// Observation is one raw (entity, date) record as delivered by the data
// loader. Fields mirror the fixed input column contract; missing columns
// are rejected at ingest time, never defaulted here.
type Observation struct {
	EntityID      string    `json:"entity_id"`
	Date          time.Time `json:"date"`
	Sales         float64   `json:"sales"`
	Orders        float64   `json:"orders"`
	Rating        float64   `json:"rating"`
	CancelRate    float64   `json:"cancellation_rate"`
	AdvertisingOn bool      `json:"advertising_on"`
	RainfallMM    float64   `json:"rainfall_mm"`
	TemperatureC  float64   `json:"temperature_c"`
	IsHoliday     bool      `json:"is_holiday"`
}

// Dataset is an ordered sequence of observations. Every derived
// computation assumes ascending date order within each entity; call
// Sort before handing a dataset to the feature pipeline.
type Dataset []Observation

// Sort orders the dataset by entity id, then ascending date.
func (d Dataset) Sort() {
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].EntityID != d[j].EntityID {
			return d[i].EntityID < d[j].EntityID
		}
		return d[i].Date.Before(d[j].Date)
	})
}

// Validate checks the (entity, date) uniqueness invariant. The dataset
// must already be sorted.
func (d Dataset) Validate() error {
	for i := 1; i < len(d); i++ {
		if d[i].EntityID == d[i-1].EntityID && d[i].Date.Equal(d[i-1].Date) {
			return fmt.Errorf("duplicate observation for entity %q on %s",
				d[i].EntityID, d[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Entities returns the distinct entity ids in first-seen order.
func (d Dataset) Entities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range d {
		if !seen[o.EntityID] {
			seen[o.EntityID] = true
			out = append(out, o.EntityID)
		}
	}
	return out
}

// ByEntity groups observations per entity, preserving row order.
func (d Dataset) ByEntity() map[string][]Observation {
	out := make(map[string][]Observation)
	for _, o := range d {
		out[o.EntityID] = append(out[o.EntityID], o)
	}
	return out
}

// Lookup returns the index of the observation for (entityID, date), or
// -1 when the dataset has no such row. Dates are compared by calendar
// day in UTC.
func (d Dataset) Lookup(entityID string, date time.Time) int {
	day := date.UTC().Truncate(24 * time.Hour)
	for i, o := range d {
		if o.EntityID == entityID && o.Date.UTC().Truncate(24*time.Hour).Equal(day) {
			return i
		}
	}
	return -1
}

package feature

import "time"

// RowRef ties a feature row back to the observation it was derived
// from. HasHistory marks rows whose deepest lag is backed by a real
// prior observation (earlier rows carry zero-filled lags); HasTarget is
// false for each entity's first row, whose target is undefined.
type RowRef struct {
	EntityID   string    `json:"entity_id"`
	Date       time.Time `json:"date"`
	HasHistory bool      `json:"has_history"`
	HasTarget  bool      `json:"has_target"`
}

// Matrix is the assembled feature contract: an ordered feature-name
// list, one value row per observation, and the aligned target vectors.
// TargetPct is the reporting-only percentage variant and is never used
// for training.
type Matrix struct {
	Names     []string
	Rows      [][]float64
	Refs      []RowRef
	Target    []float64
	TargetPct []float64
}

// Lookup returns the row index for (entityID, date), or -1.
func (m *Matrix) Lookup(entityID string, date time.Time) int {
	day := date.UTC().Truncate(24 * time.Hour)
	for i, r := range m.Refs {
		if r.EntityID == entityID && r.Date.UTC().Truncate(24*time.Hour).Equal(day) {
			return i
		}
	}
	return -1
}

// TrainingRows returns the rows with a defined target, in order.
func (m *Matrix) TrainingRows() (x [][]float64, y []float64, refs []RowRef) {
	for i, r := range m.Refs {
		if !r.HasTarget {
			continue
		}
		x = append(x, m.Rows[i])
		y = append(y, m.Target[i])
		refs = append(refs, r)
	}
	return x, y, refs
}

// Column returns the index of the named feature, or -1.
func (m *Matrix) Column(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

package feature

import (
	"fmt"
	"strings"
)

// DataInsufficientError reports an entity whose history is too short
// for the requested lag depth. Callers can recover by lowering the
// configured lags or dropping the entity.
type DataInsufficientError struct {
	EntityID string
	Rows     int
	Required int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("feature: entity %q has %d observations, need at least %d for the configured lags",
		e.EntityID, e.Rows, e.Required)
}

// LeakageViolationError reports feature columns that would let the
// model see the target. Always fatal: training must not start.
type LeakageViolationError struct {
	Columns []string
}

func (e *LeakageViolationError) Error() string {
	return fmt.Sprintf("feature: leakage violation in columns [%s]", strings.Join(e.Columns, ", "))
}

// FeatureCountError reports a feature count outside the configured
// sanity band, which signals a misconfigured pipeline.
type FeatureCountError struct {
	Count, Min, Max int
}

func (e *FeatureCountError) Error() string {
	return fmt.Sprintf("feature: %d features produced, expected between %d and %d", e.Count, e.Min, e.Max)
}

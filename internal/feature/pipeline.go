package feature

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/tablewise/salesight/internal/model"
)

// forbiddenNames are raw identifier or target columns that must never
// appear as features under any alias.
var forbiddenNames = map[string]bool{
	"entity_id":   true,
	"id":          true,
	"sales":       true,
	"target":      true,
	"orders":      true,
	"order_count": true,
	"total_sales": true,
}

// correlationCeiling flags a feature as target-entangled. Exact copies
// and trivial rescalings of the target land at ±1; legitimate lag
// features on real data stay well below.
const correlationCeiling = 0.9999

// Pipeline assembles the feature matrix from raw observations. A
// pipeline is immutable after construction: the same config always
// yields the same feature-name contract, which is what lets a stored
// artifact rebuild features for prediction months later.
type Pipeline struct {
	cfg Config
}

// NewPipeline builds a pipeline from cfg, filling zero-valued fields
// with the production defaults.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults()}
}

// Config returns the effective (default-filled) configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Names returns the ordered feature contract. Block order is fixed:
// same-day exogenous covariates, then temporal, seasonal, aggregate
// and weather blocks.
func (p *Pipeline) Names() []string {
	names := []string{"advertising_on", "rainfall_mm", "temperature_c", "is_holiday"}
	names = append(names, temporalBuilder{cfg: p.cfg}.names()...)
	names = append(names, seasonalBuilder{}.names()...)
	names = append(names, aggregateBuilder{}.names()...)
	names = append(names, weatherBuilder{}.names()...)
	return names
}

// Build sorts and validates the dataset, derives every feature block
// per entity, and returns the assembled matrix. Entities with too few
// rows for the configured lag depth abort the build with a
// DataInsufficientError; the caller decides whether to drop the entity
// or shrink the lags.
func (p *Pipeline) Build(ds model.Dataset) (*Matrix, error) {
	sorted := make(model.Dataset, len(ds))
	copy(sorted, ds)
	sorted.Sort()
	if err := sorted.Validate(); err != nil {
		return nil, err
	}

	maxLag := p.cfg.MaxLag()
	byEntity := sorted.ByEntity()
	for _, id := range sorted.Entities() {
		if rows := len(byEntity[id]); rows <= maxLag {
			return nil, &DataInsufficientError{EntityID: id, Rows: rows, Required: maxLag + 1}
		}
	}

	m := &Matrix{Names: p.Names()}
	tb := temporalBuilder{cfg: p.cfg}
	sb := seasonalBuilder{}
	ab := aggregateBuilder{mode: p.cfg.AggregateMode}
	wb := weatherBuilder{}

	for _, id := range sorted.Entities() {
		obs := byEntity[id]
		temporal := tb.compute(obs)
		aggregate := ab.compute(obs)
		delta, pct, hasTarget := computeTargets(obs)

		for i, o := range obs {
			row := []float64{
				boolToFloat(o.AdvertisingOn),
				o.RainfallMM,
				o.TemperatureC,
				boolToFloat(o.IsHoliday),
			}
			row = append(row, temporal[i]...)
			row = append(row, sb.compute(o.Date)...)
			row = append(row, aggregate[i]...)
			row = append(row, wb.compute(o)...)

			m.Rows = append(m.Rows, row)
			m.Refs = append(m.Refs, RowRef{
				EntityID:   id,
				Date:       o.Date,
				HasHistory: i >= maxLag,
				HasTarget:  hasTarget[i],
			})
			m.Target = append(m.Target, delta[i])
			m.TargetPct = append(m.TargetPct, pct[i])
		}
	}

	if err := p.Validate(m); err != nil {
		return nil, err
	}
	zap.L().Debug("feature matrix built",
		zap.Int("rows", len(m.Rows)),
		zap.Int("features", len(m.Names)),
		zap.Int("entities", len(sorted.Entities())))
	return m, nil
}

// Validate enforces the leakage and contract checks on an assembled
// matrix: forbidden column names, near-perfect target correlation, and
// the feature-count sanity band.
func (p *Pipeline) Validate(m *Matrix) error {
	var leaked []string
	for _, n := range m.Names {
		if forbiddenNames[n] {
			leaked = append(leaked, n)
		}
	}

	// Correlation check runs on rows with a defined target only; the
	// zero-filled first row per entity would otherwise distort it.
	x, y, _ := m.TrainingRows()
	if len(y) >= 3 {
		col := make([]float64, len(x))
		for j, name := range m.Names {
			for i, r := range x {
				col[i] = r[j]
			}
			c := stat.Correlation(col, y, nil)
			if !math.IsNaN(c) && math.Abs(c) > correlationCeiling {
				leaked = append(leaked, name)
			}
		}
	}

	if len(leaked) > 0 {
		return &LeakageViolationError{Columns: leaked}
	}
	if n := len(m.Names); n < p.cfg.MinFeatures || n > p.cfg.MaxFeatures {
		return &FeatureCountError{Count: n, Min: p.cfg.MinFeatures, Max: p.cfg.MaxFeatures}
	}
	return nil
}

// BuildRow derives the feature row for one observation appended to its
// entity's known history. Used at prediction time: history holds the
// entity's past rows, next the day being predicted.
func (p *Pipeline) BuildRow(history []model.Observation, next model.Observation) ([]float64, error) {
	obs := make([]model.Observation, 0, len(history)+1)
	obs = append(obs, history...)
	obs = append(obs, next)
	if len(obs) <= p.cfg.MaxLag() {
		return nil, &DataInsufficientError{
			EntityID: next.EntityID,
			Rows:     len(obs),
			Required: p.cfg.MaxLag() + 1,
		}
	}

	i := len(obs) - 1
	tb := temporalBuilder{cfg: p.cfg}
	ab := aggregateBuilder{mode: p.cfg.AggregateMode}

	row := []float64{
		boolToFloat(next.AdvertisingOn),
		next.RainfallMM,
		next.TemperatureC,
		boolToFloat(next.IsHoliday),
	}
	row = append(row, tb.compute(obs)[i]...)
	row = append(row, seasonalBuilder{}.compute(next.Date)...)
	row = append(row, ab.compute(obs)[i]...)
	row = append(row, weatherBuilder{}.compute(next)...)
	return row, nil
}

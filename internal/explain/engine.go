package explain

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/artifact"
	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/model"
	"github.com/tablewise/salesight/internal/tree"
)

// roundTripTolerance bounds |baseline + Σφ − prediction|. The Shapley
// identity is exact in real arithmetic; anything beyond float noise
// means the attribution no longer describes the model and must not be
// shown to a user.
const roundTripTolerance = 1e-6

// Options tune the engine; zero values take the defaults.
type Options struct {
	// SampleSize caps the same-entity background rows each explanation
	// averages over. Default 100.
	SampleSize int
	// Seed drives background subsampling.
	Seed int64
}

// Engine answers prediction and attribution queries against a trained
// artifact. It rebuilds the feature contract from the artifact's
// pipeline config and refuses to run if the rebuilt contract differs
// from the one the model was fitted on.
type Engine struct {
	art      *artifact.Artifact
	ensemble tree.Model
	pipeline *feature.Pipeline
	opts     Options
}

// NewEngine decodes the artifact's model and verifies the feature
// contract round-trips through the stored pipeline config.
func NewEngine(a *artifact.Artifact, opts Options) (*Engine, error) {
	m, err := a.DecodeModel()
	if err != nil {
		return nil, err
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 100
	}

	p := feature.NewPipeline(a.Pipeline)
	if err := a.CheckContract(p.Names()); err != nil {
		return nil, err
	}
	return &Engine{art: a, ensemble: m, pipeline: p, opts: opts}, nil
}

// query locates (entity, date) in the dataset, builds its feature row
// and the entity's candidate background rows.
type query struct {
	row        []float64
	background [][]float64
	prev       model.Observation
	actual     *float64
}

func (e *Engine) prepare(ds model.Dataset, entityID string, date time.Time) (*query, error) {
	m, err := e.pipeline.Build(ds)
	if err != nil {
		return nil, eris.Wrap(err, "explain: build features")
	}
	if e.art.Scaler != nil {
		if err := e.art.Scaler.Transform(m.Rows); err != nil {
			return nil, eris.Wrap(err, "explain: scale features")
		}
	}

	idx := m.Lookup(entityID, date)
	if idx < 0 {
		return nil, eris.Errorf("explain: no observation for entity %q on %s", entityID, date.Format("2006-01-02"))
	}
	if !m.Refs[idx].HasTarget {
		return nil, eris.Errorf("explain: entity %q has no prior day before %s, next-day change is undefined", entityID, date.Format("2006-01-02"))
	}

	q := &query{row: m.Rows[idx]}
	for i, r := range m.Refs {
		if i != idx && r.EntityID == entityID {
			q.background = append(q.background, m.Rows[i])
		}
	}

	sorted := make(model.Dataset, len(ds))
	copy(sorted, ds)
	sorted.Sort()
	obs := sorted.ByEntity()[entityID]
	for i, o := range obs {
		if o.Date.UTC().Truncate(24*time.Hour).Equal(date.UTC().Truncate(24*time.Hour)) {
			q.prev = obs[i-1]
			actual := o.Sales
			q.actual = &actual
		}
	}
	return q, nil
}

// Predict returns the model's next-day sales change for (entity, date)
// along with the reconstructed sales level.
func (e *Engine) Predict(ctx context.Context, ds model.Dataset, entityID string, date time.Time) (*model.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := e.prepare(ds, entityID, date)
	if err != nil {
		return nil, err
	}

	delta := e.ensemble.Predict(q.row)
	return &model.Prediction{
		EntityID:       entityID,
		Date:           date,
		Delta:          delta,
		PreviousSales:  q.prev.Sales,
		PredictedSales: q.prev.Sales + delta,
		ActualSales:    q.actual,
	}, nil
}

// Explain attributes the prediction for (entity, date) to individual
// features with exact tree Shapley values, averaged over a sample of
// the entity's other rows as background. topN truncates the ranked
// contribution list; topN <= 0 keeps every feature.
func (e *Engine) Explain(ctx context.Context, ds model.Dataset, entityID string, date time.Time, topN int) (*model.Attribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := e.prepare(ds, entityID, date)
	if err != nil {
		return nil, err
	}
	if len(q.background) == 0 {
		return nil, eris.Errorf("explain: entity %q has no background rows", entityID)
	}

	background := sampleRows(q.background, e.opts.SampleSize, e.opts.Seed)

	phi := make([]float64, len(q.row))
	var baseline float64
	for _, z := range background {
		p := modelShapley(e.ensemble, q.row, z)
		for i := range phi {
			phi[i] += p[i] / float64(len(background))
		}
		baseline += e.ensemble.Predict(z) / float64(len(background))
	}

	prediction := e.ensemble.Predict(q.row)
	var total float64
	for _, v := range phi {
		total += v
	}
	if gap := math.Abs(baseline + total - prediction); gap > roundTripTolerance {
		return nil, eris.Errorf("explain: attribution drift %.3g exceeds tolerance, refusing to report", gap)
	}

	contributions := make([]model.FeatureContribution, len(phi))
	for i, v := range phi {
		contributions[i] = model.FeatureContribution{
			Feature: e.art.FeatureNames[i],
			Value:   q.row[i],
			Impact:  v,
		}
	}
	sort.SliceStable(contributions, func(a, b int) bool {
		return math.Abs(contributions[a].Impact) > math.Abs(contributions[b].Impact)
	})
	if topN > 0 && topN < len(contributions) {
		contributions = contributions[:topN]
	}

	att := &model.Attribution{
		EntityID:      entityID,
		Date:          date,
		Prediction:    prediction,
		Baseline:      baseline,
		Contributions: contributions,
		TotalImpact:   total,
	}
	att.Summary = summarize(att)

	zap.L().Debug("explanation computed",
		zap.String("entity", entityID),
		zap.Int("background_rows", len(background)),
		zap.Float64("prediction", prediction),
		zap.Float64("baseline", baseline))
	return att, nil
}

// sampleRows picks up to n rows without replacement, deterministically
// under seed. Fewer rows than n are returned as-is.
func sampleRows(rows [][]float64, n int, seed int64) [][]float64 {
	if len(rows) <= n {
		return rows
	}
	idx := rand.New(rand.NewSource(seed)).Perm(len(rows))[:n]
	sort.Ints(idx)
	out := make([][]float64, n)
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

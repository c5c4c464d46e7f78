package explain

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/salesight/internal/artifact"
	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/model"
	"github.com/tablewise/salesight/internal/train"
	"github.com/tablewise/salesight/internal/tree"
)

func sum(s []float64) float64 {
	var t float64
	for _, v := range s {
		t += v
	}
	return t
}

func randomRows(n, cols int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = make([]float64, cols)
		for j := range x[i] {
			x[i][j] = rng.Float64() * 10
		}
		y[i] = 3*x[i][0] - 2*x[i][1] + x[i][2]*x[i][3] + rng.NormFloat64()
	}
	return x, y
}

// The load-bearing identity: for any tree and any pair of rows, the
// Shapley values sum exactly to tree(x) − tree(z).
func TestTreeShapleyAdditivity(t *testing.T) {
	x, y := randomRows(300, 5, 1)
	tr := tree.FitTree(x, y, tree.Params{MaxDepth: 6, MinSamplesSplit: 4, MinSamplesLeaf: 2}, nil)

	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 50; trial++ {
		a := x[rng.Intn(len(x))]
		b := x[rng.Intn(len(x))]
		phi := make([]float64, 5)
		treeShapley(tr, a, b, phi)
		assert.InDelta(t, tr.Predict(a)-tr.Predict(b), sum(phi), 1e-9)
	}
}

func TestTreeShapleySingleSplit(t *testing.T) {
	// depth-1 tree on feature 0: the whole difference lands on it
	root := &tree.Node{
		Feature:   0,
		Threshold: 5,
		Left:      &tree.Node{Leaf: true, Value: 10},
		Right:     &tree.Node{Leaf: true, Value: 20},
	}
	tr := &tree.Tree{Root: root}

	phi := make([]float64, 3)
	treeShapley(tr, []float64{8, 1, 1}, []float64{2, 9, 9}, phi)
	assert.InDelta(t, 10.0, phi[0], 1e-12)
	assert.Zero(t, phi[1])
	assert.Zero(t, phi[2])
}

func TestTreeShapleySameLeafIsZero(t *testing.T) {
	x, y := randomRows(200, 4, 3)
	tr := tree.FitTree(x, y, tree.Params{MaxDepth: 5}, nil)

	phi := make([]float64, 4)
	treeShapley(tr, x[7], x[7], phi)
	for _, v := range phi {
		assert.Zero(t, v)
	}
}

func TestModelShapleyForestAndBoosting(t *testing.T) {
	x, y := randomRows(250, 5, 4)
	ctx := context.Background()

	f, err := tree.FitForest(ctx, x, y, 12, tree.Params{MaxDepth: 5}, 42)
	require.NoError(t, err)
	phi := modelShapley(f, x[3], x[40])
	assert.InDelta(t, f.Predict(x[3])-f.Predict(x[40]), sum(phi), 1e-9)

	b, err := tree.FitBoosting(ctx, x, y, 25, 0.1, tree.Params{MaxDepth: 3}, 42)
	require.NoError(t, err)
	phi = modelShapley(b, x[3], x[40])
	assert.InDelta(t, b.Predict(x[3])-b.Predict(x[40]), sum(phi), 1e-9)
}

// engineFixture trains a small forest on a synthetic two-entity
// dataset and wraps it in an engine.
func engineFixture(t *testing.T) (*Engine, model.Dataset) {
	t.Helper()
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // a Monday
	var ds model.Dataset
	for ei, id := range []string{"bistro", "diner"} {
		base := 120.0 + float64(ei)*50
		for i := 0; i < 35; i++ {
			date := start.AddDate(0, 0, i)
			sales := base + 10*math.Sin(float64(i)/2)
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				sales += 30
			}
			ds = append(ds, model.Observation{
				EntityID:     id,
				Date:         date,
				Sales:        sales,
				Orders:       sales / 8,
				Rating:       4.1,
				TemperatureC: 23,
			})
		}
	}

	cfg := train.DefaultConfig()
	cfg.Spec.NEstimators = 10
	cfg.Spec.Params.MaxDepth = 4
	a, err := train.NewTrainer(feature.NewPipeline(feature.DefaultConfig()), cfg).Train(context.Background(), ds)
	require.NoError(t, err)

	e, err := NewEngine(a, Options{SampleSize: 20, Seed: 42})
	require.NoError(t, err)
	return e, ds
}

func TestEnginePredictReconstructsSalesLevel(t *testing.T) {
	e, ds := engineFixture(t)
	date := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	p, err := e.Predict(context.Background(), ds, "bistro", date)
	require.NoError(t, err)

	assert.Equal(t, "bistro", p.EntityID)
	assert.InDelta(t, p.PreviousSales+p.Delta, p.PredictedSales, 1e-12)
	require.NotNil(t, p.ActualSales)

	// previous sales must be the March 19 observation
	var want float64
	for _, o := range ds {
		if o.EntityID == "bistro" && o.Date.Equal(date.AddDate(0, 0, -1)) {
			want = o.Sales
		}
	}
	assert.InDelta(t, want, p.PreviousSales, 1e-12)
}

func TestEnginePredictUnknownDate(t *testing.T) {
	e, ds := engineFixture(t)
	_, err := e.Predict(context.Background(), ds, "bistro", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestEngineExplainRoundTrip(t *testing.T) {
	e, ds := engineFixture(t)
	date := time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC)

	att, err := e.Explain(context.Background(), ds, "diner", date, 0)
	require.NoError(t, err)

	assert.InDelta(t, att.Prediction, att.Baseline+att.TotalImpact, roundTripTolerance)
	assert.Len(t, att.Contributions, len(e.art.FeatureNames))
	for i := 1; i < len(att.Contributions); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(att.Contributions[i-1].Impact),
			math.Abs(att.Contributions[i].Impact),
			"contributions not ranked by |impact|")
	}
	assert.NotEmpty(t, att.Summary)
	assert.Contains(t, att.Summary, "diner")
}

func TestEngineExplainTopN(t *testing.T) {
	e, ds := engineFixture(t)
	date := time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC)

	full, err := e.Explain(context.Background(), ds, "diner", date, 0)
	require.NoError(t, err)
	top, err := e.Explain(context.Background(), ds, "diner", date, 5)
	require.NoError(t, err)

	assert.Len(t, top.Contributions, 5)
	// truncation never changes the accounting
	assert.InDelta(t, full.TotalImpact, top.TotalImpact, 1e-12)
	assert.Equal(t, full.Contributions[:5], top.Contributions)
}

func TestEngineExplainDeterministic(t *testing.T) {
	e, ds := engineFixture(t)
	date := time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)

	a1, err := e.Explain(context.Background(), ds, "bistro", date, 10)
	require.NoError(t, err)
	a2, err := e.Explain(context.Background(), ds, "bistro", date, 10)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestEngineExplainFirstRowRejected(t *testing.T) {
	e, ds := engineFixture(t)
	_, err := e.Explain(context.Background(), ds, "bistro", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), 0)
	assert.Error(t, err)
}

func TestGlobalImportance(t *testing.T) {
	e, ds := engineFixture(t)

	entries, err := e.GlobalImportance(context.Background(), ds, 12)
	require.NoError(t, err)

	assert.Len(t, entries, len(e.art.FeatureNames))
	for i, en := range entries {
		assert.GreaterOrEqual(t, en.Importance, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, entries[i-1].Importance, en.Importance)
		}
	}
}

func TestNewEngineRejectsContractMismatch(t *testing.T) {
	e, _ := engineFixture(t)

	broken := *e.art
	names := make([]string, len(broken.FeatureNames))
	copy(names, broken.FeatureNames)
	names[0] = "renamed"
	broken.FeatureNames = names

	_, err := NewEngine(&broken, Options{})
	var mismatch *artifact.ContractMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

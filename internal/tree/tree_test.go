package tree

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData is perfectly separable on feature 0 at 5: y = 10 below, 20
// above, with feature 1 as noise.
func stepData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		v := rng.Float64() * 10
		x[i] = []float64{v, rng.Float64()}
		if v <= 5 {
			y[i] = 10
		} else {
			y[i] = 20
		}
	}
	return x, y
}

func TestTreeLearnsStepFunction(t *testing.T) {
	x, y := stepData(200, 1)
	tr := FitTree(x, y, Params{MaxDepth: 3}, nil)

	assert.InDelta(t, 10.0, tr.Predict([]float64{2, 0.5}), 1e-9)
	assert.InDelta(t, 20.0, tr.Predict([]float64{8, 0.5}), 1e-9)
}

func TestTreeRespectsMaxDepth(t *testing.T) {
	x, y := stepData(200, 2)
	tr := FitTree(x, y, Params{MaxDepth: 1, MinSamplesSplit: 2, MinSamplesLeaf: 1}, nil)

	depth := func(n *Node) int {
		var walk func(*Node) int
		walk = func(n *Node) int {
			if n.Leaf {
				return 0
			}
			l, r := walk(n.Left), walk(n.Right)
			if l > r {
				return l + 1
			}
			return r + 1
		}
		return walk(n)
	}
	assert.LessOrEqual(t, depth(tr.Root), 1)
}

func TestTreeConstantTargetIsSingleLeaf(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{7, 7, 7, 7, 7, 7}
	tr := FitTree(x, y, Params{}, nil)

	assert.True(t, tr.Root.Leaf)
	assert.InDelta(t, 7.0, tr.Root.Value, 1e-9)
	assert.Equal(t, 6, tr.Root.Samples)
}

func TestForestDeterministicUnderSeed(t *testing.T) {
	x, y := stepData(120, 3)
	ctx := context.Background()

	a, err := FitForest(ctx, x, y, 20, Params{MaxDepth: 4}, 42)
	require.NoError(t, err)
	b, err := FitForest(ctx, x, y, 20, Params{MaxDepth: 4}, 42)
	require.NoError(t, err)

	probe := []float64{4.9, 0.3}
	assert.Equal(t, a.Predict(probe), b.Predict(probe))

	aj, err := json.Marshal(a)
	require.NoError(t, err)
	bj, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, aj, bj)
}

func TestForestPredictIsTreeMean(t *testing.T) {
	x, y := stepData(120, 4)
	f, err := FitForest(context.Background(), x, y, 10, Params{MaxDepth: 4}, 7)
	require.NoError(t, err)

	probe := []float64{8.2, 0.1}
	var sum float64
	for _, tr := range f.Trees {
		sum += tr.Predict(probe)
	}
	assert.InDelta(t, sum/10, f.Predict(probe), 1e-12)
}

func TestBoostingReducesTrainingError(t *testing.T) {
	x, y := stepData(150, 5)

	b, err := FitBoosting(context.Background(), x, y, 50, 0.1, Params{MaxDepth: 2}, 42)
	require.NoError(t, err)

	var initSSE, fitSSE float64
	for i, row := range x {
		d0 := y[i] - b.Init
		initSSE += d0 * d0
		d := y[i] - b.Predict(row)
		fitSSE += d * d
	}
	assert.Less(t, fitSSE, initSSE/10)
}

func TestBoostingInitIsTargetMean(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{1, 2, 3, 4, 5, 6}
	b, err := FitBoosting(context.Background(), x, y, 5, 0.1, Params{}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, b.Init, 1e-12)
}

func TestDecodeRoundTrip(t *testing.T) {
	x, y := stepData(100, 6)
	f, err := FitForest(context.Background(), x, y, 5, Params{MaxDepth: 3}, 9)
	require.NoError(t, err)

	raw, err := json.Marshal(f)
	require.NoError(t, err)
	m, err := Decode(FamilyForest, raw)
	require.NoError(t, err)

	probe := []float64{3.3, 0.9}
	assert.False(t, math.IsNaN(m.Predict(probe)))
	assert.Equal(t, f.Predict(probe), m.Predict(probe))
}

func TestDecodeUnknownFamily(t *testing.T) {
	_, err := Decode(Family("linear"), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestFitForestHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x, y := stepData(50, 7)
	_, err := FitForest(ctx, x, y, 100, Params{}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

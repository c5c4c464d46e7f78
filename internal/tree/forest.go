package tree

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Forest is a bagged ensemble of regression trees. Prediction is the
// mean over trees.
type Forest struct {
	Trees []*Tree `json:"trees"`
}

// FitForest trains nEstimators trees on bootstrap resamples of x/y.
// Tree t draws its bootstrap and any feature subsampling from a
// dedicated rand source seeded seed+t, so the ensemble is byte-for-byte
// reproducible regardless of how the trees are scheduled across
// goroutines.
func FitForest(ctx context.Context, x [][]float64, y []float64, nEstimators int, p Params, seed int64) (*Forest, error) {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	trees := make([]*Tree, nEstimators)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < nEstimators; t++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed + int64(t)))
			bx, by := bootstrap(x, y, rng)
			trees[t] = FitTree(bx, by, p, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Forest{Trees: trees}, nil
}

func (f *Forest) Predict(row []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.Trees))
}

func bootstrap(x [][]float64, y []float64, rng *rand.Rand) ([][]float64, []float64) {
	n := len(y)
	bx := make([][]float64, n)
	by := make([]float64, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		bx[i] = x[j]
		by[i] = y[j]
	}
	return bx, by
}

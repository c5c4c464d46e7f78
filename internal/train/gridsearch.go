package train

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Grid enumerates the hyperparameter axes for grid search. Empty axes
// fall back to the base spec's value.
type Grid struct {
	MaxDepth       []int `json:"max_depth" yaml:"max_depth"`
	NEstimators    []int `json:"n_estimators" yaml:"n_estimators"`
	MinSamplesLeaf []int `json:"min_samples_leaf" yaml:"min_samples_leaf"`
}

func (g Grid) expand(base ModelSpec) []ModelSpec {
	depths := g.MaxDepth
	if len(depths) == 0 {
		depths = []int{base.Params.MaxDepth}
	}
	estimators := g.NEstimators
	if len(estimators) == 0 {
		estimators = []int{base.NEstimators}
	}
	leaves := g.MinSamplesLeaf
	if len(leaves) == 0 {
		leaves = []int{base.Params.MinSamplesLeaf}
	}

	var specs []ModelSpec
	for _, d := range depths {
		for _, e := range estimators {
			for _, l := range leaves {
				s := base
				s.Params.MaxDepth = d
				s.NEstimators = e
				s.Params.MinSamplesLeaf = l
				specs = append(specs, s)
			}
		}
	}
	return specs
}

// GridSearch cross-validates every combination and returns the spec
// with the best mean CV R². Candidates run concurrently; the winner is
// chosen by a deterministic scan in enumeration order, so ties always
// resolve the same way regardless of completion order.
func GridSearch(ctx context.Context, base ModelSpec, grid Grid, set *Set, folds int, seed int64) (ModelSpec, float64, error) {
	specs := grid.expand(base)
	if len(specs) == 1 {
		mean, _, err := CrossValidate(ctx, specs[0], set, folds, seed)
		return specs[0], mean, err
	}

	means := make([]float64, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, spec := range specs {
		g.Go(func() error {
			mean, _, err := CrossValidate(ctx, spec, set, folds, seed)
			if err != nil {
				return err
			}
			means[i] = mean
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ModelSpec{}, 0, err
	}

	best := 0
	for i := 1; i < len(specs); i++ {
		if means[i] > means[best] {
			best = i
		}
	}
	zap.L().Info("grid search complete",
		zap.Int("candidates", len(specs)),
		zap.Float64("best_cv_r2", means[best]),
		zap.Int("max_depth", specs[best].Params.MaxDepth),
		zap.Int("n_estimators", specs[best].NEstimators),
		zap.Int("min_samples_leaf", specs[best].Params.MinSamplesLeaf))
	return specs[best], means[best], nil
}

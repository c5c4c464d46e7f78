package tree

import (
	"context"
	"math/rand"
)

// Boosting is a gradient-boosted ensemble for squared error: each tree
// fits the residuals of the model so far and contributes scaled by the
// learning rate. Prediction is Init + rate·Σ tree(row).
type Boosting struct {
	Init         float64 `json:"init"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []*Tree `json:"trees"`
}

// FitBoosting trains nEstimators stages sequentially. The stages
// depend on each other, so unlike the forest there is nothing to fan
// out; ctx is still honored between stages.
func FitBoosting(ctx context.Context, x [][]float64, y []float64, nEstimators int, rate float64, p Params, seed int64) (*Boosting, error) {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	if rate <= 0 {
		rate = 0.1
	}

	var init float64
	for _, v := range y {
		init += v
	}
	init /= float64(len(y))

	b := &Boosting{Init: init, LearningRate: rate, Trees: make([]*Tree, 0, nEstimators)}
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = init
	}
	residual := make([]float64, len(y))

	for t := 0; t < nEstimators; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		rng := rand.New(rand.NewSource(seed + int64(t)))
		stage := FitTree(x, residual, p, rng)
		b.Trees = append(b.Trees, stage)
		for i, row := range x {
			pred[i] += rate * stage.Predict(row)
		}
	}
	return b, nil
}

func (b *Boosting) Predict(row []float64) float64 {
	sum := b.Init
	for _, t := range b.Trees {
		sum += b.LearningRate * t.Predict(row)
	}
	return sum
}

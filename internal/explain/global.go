package explain

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/tablewise/salesight/internal/model"
)

// GlobalImportance ranks features by mean absolute Shapley value over
// a sample of explained rows. Each sampled row is attributed against
// its own entity's remaining rows, so the ranking reflects the same
// attribution the per-prediction path produces, not a separate
// impurity heuristic.
func (e *Engine) GlobalImportance(ctx context.Context, ds model.Dataset, sampleSize int) ([]model.ImportanceEntry, error) {
	if sampleSize <= 0 {
		sampleSize = 100
	}

	m, err := e.pipeline.Build(ds)
	if err != nil {
		return nil, eris.Wrap(err, "explain: build features")
	}
	if e.art.Scaler != nil {
		if err := e.art.Scaler.Transform(m.Rows); err != nil {
			return nil, eris.Wrap(err, "explain: scale features")
		}
	}

	// group row indices by entity, keep rows with a defined target
	byEntity := map[string][]int{}
	var order []string
	for i, r := range m.Refs {
		if _, ok := byEntity[r.EntityID]; !ok {
			order = append(order, r.EntityID)
		}
		if r.HasTarget {
			byEntity[r.EntityID] = append(byEntity[r.EntityID], i)
		}
	}

	var foreground []int
	for _, id := range order {
		foreground = append(foreground, byEntity[id]...)
	}
	foreground = sampleInts(foreground, sampleSize, e.opts.Seed)
	if len(foreground) == 0 {
		return nil, eris.New("explain: no rows to sample for global importance")
	}

	sums := make([]float64, len(m.Names))
	for _, fi := range foreground {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entity := m.Refs[fi].EntityID
		var background [][]float64
		for _, zi := range byEntity[entity] {
			if zi != fi {
				background = append(background, m.Rows[zi])
			}
		}
		background = sampleRows(background, e.opts.SampleSize, e.opts.Seed)
		if len(background) == 0 {
			continue
		}
		for _, z := range background {
			phi := modelShapley(e.ensemble, m.Rows[fi], z)
			for j, v := range phi {
				sums[j] += math.Abs(v) / float64(len(background))
			}
		}
	}

	out := make([]model.ImportanceEntry, len(sums))
	for j, s := range sums {
		out[j] = model.ImportanceEntry{Feature: m.Names[j], Importance: s / float64(len(foreground))}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out, nil
}

func sampleInts(s []int, n int, seed int64) []int {
	if len(s) <= n {
		return s
	}
	idx := rand.New(rand.NewSource(seed)).Perm(len(s))[:n]
	sort.Ints(idx)
	out := make([]int, n)
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}

package tree

import (
	"math"
	"math/rand"
	"sort"
)

// Params controls regression tree growth. Zero values fall back to the
// production defaults via withDefaults.
type Params struct {
	MaxDepth        int `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	// MaxFeatures is the per-split feature subsample size; 0 means all
	// features, the usual choice for regression.
	MaxFeatures int `json:"max_features,omitempty" yaml:"max_features,omitempty"`
}

func (p Params) withDefaults() Params {
	if p.MaxDepth == 0 {
		p.MaxDepth = 10
	}
	if p.MinSamplesSplit == 0 {
		p.MinSamplesSplit = 5
	}
	if p.MinSamplesLeaf == 0 {
		p.MinSamplesLeaf = 2
	}
	return p
}

// Node is one decision node. Leaves carry the mean target of their
// training samples; internal nodes route row[Feature] <= Threshold to
// Left. The struct serializes as-is into the artifact bundle.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Samples   int     `json:"samples"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
}

// Tree is a CART regression tree grown by greedy variance reduction.
type Tree struct {
	Root *Node `json:"root"`
}

// FitTree grows a tree on x/y. rng drives per-split feature
// subsampling when Params.MaxFeatures is set; pass nil to always
// consider every feature.
func FitTree(x [][]float64, y []float64, p Params, rng *rand.Rand) *Tree {
	p = p.withDefaults()
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	g := &grower{x: x, y: y, p: p, rng: rng}
	return &Tree{Root: g.grow(idx, 0)}
}

// Predict routes row to a leaf and returns its value.
func (t *Tree) Predict(row []float64) float64 {
	n := t.Root
	for !n.Leaf {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type grower struct {
	x   [][]float64
	y   []float64
	p   Params
	rng *rand.Rand
}

func (g *grower) grow(idx []int, depth int) *Node {
	mean, sse := meanSSE(g.y, idx)
	if depth >= g.p.MaxDepth || len(idx) < g.p.MinSamplesSplit || sse < 1e-12 {
		return &Node{Leaf: true, Value: mean, Samples: len(idx)}
	}

	feat, thr, ok := g.bestSplit(idx, sse)
	if !ok {
		return &Node{Leaf: true, Value: mean, Samples: len(idx)}
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &Node{
		Feature:   feat,
		Threshold: thr,
		Samples:   len(idx),
		Left:      g.grow(left, depth+1),
		Right:     g.grow(right, depth+1),
	}
}

// bestSplit scans every candidate feature for the threshold minimizing
// the summed squared error of the two children. A split must improve
// on the parent SSE and leave MinSamplesLeaf rows on each side.
func (g *grower) bestSplit(idx []int, parentSSE float64) (feature int, threshold float64, ok bool) {
	nFeatures := len(g.x[idx[0]])
	candidates := g.candidateFeatures(nFeatures)

	best := parentSSE - 1e-12
	ordered := make([]int, len(idx))

	for _, f := range candidates {
		copy(ordered, idx)
		sort.Slice(ordered, func(a, b int) bool {
			return g.x[ordered[a]][f] < g.x[ordered[b]][f]
		})

		// prefix sums over the ordered target values
		var lSum, lSq float64
		tSum, tSq := 0.0, 0.0
		for _, i := range ordered {
			tSum += g.y[i]
			tSq += g.y[i] * g.y[i]
		}

		for k := 0; k < len(ordered)-1; k++ {
			i := ordered[k]
			lSum += g.y[i]
			lSq += g.y[i] * g.y[i]

			nl := k + 1
			nr := len(ordered) - nl
			if nl < g.p.MinSamplesLeaf || nr < g.p.MinSamplesLeaf {
				continue
			}
			// ties cannot be split between equal values
			if g.x[i][f] == g.x[ordered[k+1]][f] {
				continue
			}

			rSum := tSum - lSum
			rSq := tSq - lSq
			sse := (lSq - lSum*lSum/float64(nl)) + (rSq - rSum*rSum/float64(nr))
			if sse < best {
				best = sse
				feature = f
				threshold = (g.x[i][f] + g.x[ordered[k+1]][f]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func (g *grower) candidateFeatures(n int) []int {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if g.p.MaxFeatures <= 0 || g.p.MaxFeatures >= n || g.rng == nil {
		return all
	}
	g.rng.Shuffle(n, func(a, b int) { all[a], all[b] = all[b], all[a] })
	sub := all[:g.p.MaxFeatures]
	sort.Ints(sub)
	return sub
}

func meanSSE(y []float64, idx []int) (mean, sse float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	if math.IsNaN(sse) {
		return mean, 0
	}
	return mean, sse
}

package explain

import (
	"github.com/tablewise/salesight/internal/tree"
)

// treeShapley computes exact Shapley values for a single regression
// tree, one foreground row x against one background row z.
//
// The coalition game is v(S) = tree(row where features in S take x's
// values and the rest take z's). Because the tree only reads a feature
// on the path, the recursion tracks just the features the two rows
// disagree on: descending a node where x and z route the same way adds
// no constraint; a divergent node splits the walk into the x-side
// branch (feature pinned to x) and the z-side branch (feature pinned
// to z). A leaf reached with divergence sets Dx and Dz contributes
//
//	+leaf · (a−1)!·b!/(a+b)!  to every feature in Dx   (a = |Dx|)
//	−leaf · a!·(b−1)!/(a+b)!  to every feature in Dz   (b = |Dz|)
//
// which telescopes so that Σφ = tree(x) − tree(z) exactly.
func treeShapley(t *tree.Tree, x, z []float64, phi []float64) {
	w := &walker{x: x, z: z, phi: phi}
	w.walk(t.Root)
}

type walker struct {
	x, z []float64
	phi  []float64
	dx   []int // features pinned to x's side on this path
	dz   []int // features pinned to z's side
}

func (w *walker) walk(n *tree.Node) {
	if n.Leaf {
		w.credit(n.Value)
		return
	}

	xLeft := w.x[n.Feature] <= n.Threshold
	zLeft := w.z[n.Feature] <= n.Threshold

	if xLeft == zLeft {
		if xLeft {
			w.walk(n.Left)
		} else {
			w.walk(n.Right)
		}
		return
	}

	// Already-pinned features keep their side; a feature cannot be
	// pinned both ways, so the other branch is unreachable.
	if contains(w.dx, n.Feature) {
		w.walkSide(n, xLeft)
		return
	}
	if contains(w.dz, n.Feature) {
		w.walkSide(n, zLeft)
		return
	}

	w.dx = append(w.dx, n.Feature)
	w.walkSide(n, xLeft)
	w.dx = w.dx[:len(w.dx)-1]

	w.dz = append(w.dz, n.Feature)
	w.walkSide(n, zLeft)
	w.dz = w.dz[:len(w.dz)-1]
}

func (w *walker) walkSide(n *tree.Node, left bool) {
	if left {
		w.walk(n.Left)
	} else {
		w.walk(n.Right)
	}
}

// credit distributes a leaf value across the divergent features with
// the exact Shapley coalition weights.
func (w *walker) credit(leaf float64) {
	a := len(w.dx)
	b := len(w.dz)
	if a == 0 && b == 0 {
		// x and z share this leaf: no feature separates them here
		return
	}
	if a > 0 {
		wx := leaf * factorial(a-1) * factorial(b) / factorial(a+b)
		for _, f := range w.dx {
			w.phi[f] += wx
		}
	}
	if b > 0 {
		wz := leaf * factorial(a) * factorial(b-1) / factorial(a+b)
		for _, f := range w.dz {
			w.phi[f] -= wz
		}
	}
}

func contains(s []int, v int) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// factorial in float64; path divergence counts are bounded by tree
// depth, far below overflow territory.
var factorials = func() [171]float64 {
	var f [171]float64
	f[0] = 1
	for i := 1; i < len(f); i++ {
		f[i] = f[i-1] * float64(i)
	}
	return f
}()

func factorial(n int) float64 {
	return factorials[n]
}

// modelShapley computes Shapley values of the full ensemble for one
// foreground/background pair. Forests average the per-tree values with
// the same 1/n weight as prediction; boosting sums stages scaled by
// the learning rate. Either way Σφ = model(x) − model(z).
func modelShapley(m tree.Model, x, z []float64) []float64 {
	phi := make([]float64, len(x))
	switch e := m.(type) {
	case *tree.Forest:
		per := make([]float64, len(x))
		for _, t := range e.Trees {
			for i := range per {
				per[i] = 0
			}
			treeShapley(t, x, z, per)
			for i := range phi {
				phi[i] += per[i] / float64(len(e.Trees))
			}
		}
	case *tree.Boosting:
		per := make([]float64, len(x))
		for _, t := range e.Trees {
			for i := range per {
				per[i] = 0
			}
			treeShapley(t, x, z, per)
			for i := range phi {
				phi[i] += e.LearningRate * per[i]
			}
		}
	}
	return phi
}

// Package xai trains gradient-boosted tree explainers over campaign feature
// tables and attributes predictions to features via decision-path
// contributions.
package xai

import (
	"fmt"
	"math"
	"sort"
)

// node is one split or leaf in a flattened regression tree.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64 // mean target of the samples reaching this node
	leaf      bool
}

// tree is a depth-limited CART regression tree with variance-reduction
// splits.
type tree struct {
	nodes []node
}

type treeParams struct {
	maxDepth int
	minLeaf  int
}

// buildTree fits a regression tree on the rows indexed by idx.
func buildTree(x [][]float64, y []float64, idx []int, p treeParams) *tree {
	t := &tree{}
	t.grow(x, y, idx, 0, p)
	return t
}

func (t *tree) grow(x [][]float64, y []float64, idx []int, depth int, p treeParams) int {
	mean := meanAt(y, idx)
	self := len(t.nodes)
	t.nodes = append(t.nodes, node{value: mean, leaf: true, left: -1, right: -1})

	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf {
		return self
	}
	feat, thr, ok := bestSplit(x, y, idx, p.minLeaf)
	if !ok {
		return self
	}

	var li, ri []int
	for _, i := range idx {
		if x[i][feat] <= thr {
			li = append(li, i)
		} else {
			ri = append(ri, i)
		}
	}
	left := t.grow(x, y, li, depth+1, p)
	right := t.grow(x, y, ri, depth+1, p)

	t.nodes[self].leaf = false
	t.nodes[self].feature = feat
	t.nodes[self].threshold = thr
	t.nodes[self].left = left
	t.nodes[self].right = right
	return self
}

// bestSplit scans every feature for the threshold with the largest weighted
// variance reduction, keeping both sides at least minLeaf large.
func bestSplit(x [][]float64, y []float64, idx []int, minLeaf int) (int, float64, bool) {
	n := len(idx)
	if n < 2*minLeaf {
		return 0, 0, false
	}
	nFeat := len(x[idx[0]])

	total, totalSq := 0.0, 0.0
	for _, i := range idx {
		total += y[i]
		totalSq += y[i] * y[i]
	}
	baseSSE := totalSq - total*total/float64(n)

	bestGain := 1e-12
	bestFeat, bestThr, found := 0, 0.0, false

	order := make([]int, n)
	for f := 0; f < nFeat; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			v, next := x[i][f], x[order[k+1]][f]
			if v == next {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			gain := baseSSE - sse
			if gain > bestGain {
				bestGain = gain
				bestFeat = f
				bestThr = (v + next) / 2
				found = true
			}
		}
	}
	return bestFeat, bestThr, found
}

func (t *tree) predict(row []float64) float64 {
	i := 0
	for !t.nodes[i].leaf {
		if row[t.nodes[i].feature] <= t.nodes[i].threshold {
			i = t.nodes[i].left
		} else {
			i = t.nodes[i].right
		}
	}
	return t.nodes[i].value
}

// contributions walks the decision path and credits each split's value delta
// to the split feature. bias is the root value; bias + sum(contrib) equals
// the prediction.
func (t *tree) contributions(row []float64, contrib []float64) float64 {
	i := 0
	bias := t.nodes[i].value
	for !t.nodes[i].leaf {
		n := t.nodes[i]
		var next int
		if row[n.feature] <= n.threshold {
			next = n.left
		} else {
			next = n.right
		}
		contrib[n.feature] += t.nodes[next].value - n.value
		i = next
	}
	return bias
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	s := 0.0
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}

// Impute replaces NaN cells in place with the given value. Feature tables
// carry NaN where a condition lacked an FVA row.
func Impute(x [][]float64, v float64) {
	for _, row := range x {
		for j := range row {
			if math.IsNaN(row[j]) {
				row[j] = v
			}
		}
	}
}

func checkMatrix(x [][]float64, y int) error {
	if len(x) == 0 {
		return fmt.Errorf("xai: empty design matrix")
	}
	if y >= 0 && len(x) != y {
		return fmt.Errorf("xai: %d rows but %d targets", len(x), y)
	}
	w := len(x[0])
	for i, row := range x {
		if len(row) != w {
			return fmt.Errorf("xai: ragged design matrix at row %d", i)
		}
	}
	return nil
}

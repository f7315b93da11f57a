package causal

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Config drives one PC run.
type Config struct {
	// Alpha is the independence-test significance level.
	Alpha float64
	// MaxCond caps the conditioning set size.
	MaxCond int
	// Exogenous variables accept no incoming edges.
	Exogenous []string
	// Outcome accepts no outgoing edges.
	Outcome string
}

// DefaultConfig mirrors the usual PC settings for tables of this size.
func DefaultConfig() Config {
	return Config{Alpha: 0.05, MaxCond: 3}
}

// Edge is one skeleton edge, directed when orientation resolved it.
type Edge struct {
	From     string
	To       string
	Directed bool
}

// Result of a PC run.
type Result struct {
	Columns []string
	Edges   []Edge

	DroppedNaN       []string
	DroppedConstant  []string
	DroppedCollinear []string
	JitterScale      float64
	Rows             int
	Tests            int
}

// errSingular signals an ill-conditioned test matrix; the caller retries
// with stronger jitter.
var errSingular = fmt.Errorf("causal: singular correlation submatrix")

// Run prepares the table and executes PC-stable with the weaker jitter,
// retrying once with the stronger one when test matrices come out singular.
func Run(columns []string, values map[string][]float64, cfg Config, seed int64) (*Result, error) {
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return nil, fmt.Errorf("causal: alpha must be in (0,1), got %g", cfg.Alpha)
	}
	if cfg.MaxCond < 0 {
		return nil, fmt.Errorf("causal: max conditioning size must be >= 0")
	}

	for _, scale := range []float64{JitterScale, JitterScaleRetry} {
		prep, err := Prepare(columns, values, seed, scale)
		if err != nil {
			return nil, err
		}
		res, err := runPrepared(prep, cfg)
		if err == errSingular {
			continue
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("causal: correlation matrix singular even after jitter retry")
}

func runPrepared(prep *Prepared, cfg Config) (*Result, error) {
	n, p := prep.Data.Dims()
	corr := correlationMatrix(prep.Data)

	g := newGraph(p)
	sepsets := make(map[[2]int][]int)
	tests := 0

	// PC-stable: neighbor sets are frozen per level.
	for l := 0; l <= cfg.MaxCond; l++ {
		frozen := g.snapshot()
		removed := false
		for i := 0; i < p; i++ {
			for j := i + 1; j < p; j++ {
				if !g.adj[i][j] {
					continue
				}
				others := frozen.neighborsExcept(i, j)
				if len(others) < l {
					continue
				}
				done, err := forEachSubset(others, l, func(cond []int) (bool, error) {
					tests++
					r, err := partialCorr(corr, i, j, cond)
					if err != nil {
						return false, err
					}
					if fisherZPValue(r, n, len(cond)) > cfg.Alpha {
						g.remove(i, j)
						ss := append([]int(nil), cond...)
						sepsets[[2]int{i, j}] = ss
						return true, nil
					}
					return false, nil
				})
				if err != nil {
					return nil, err
				}
				if done {
					removed = true
				}
			}
		}
		if !removed && l > 0 {
			break
		}
	}

	orient(g, sepsets, prep.Columns, cfg)

	return &Result{
		Columns:          prep.Columns,
		Edges:            g.edges(prep.Columns),
		DroppedNaN:       prep.DroppedNaN,
		DroppedConstant:  prep.DroppedConstant,
		DroppedCollinear: prep.DroppedCollinear,
		JitterScale:      prep.JitterScale,
		Rows:             n,
		Tests:            tests,
	}, nil
}

// partialCorr computes corr(i, j | cond) from the precision matrix of the
// correlation submatrix over {i, j} union cond.
func partialCorr(corr *mat.SymDense, i, j int, cond []int) (float64, error) {
	if len(cond) == 0 {
		return corr.At(i, j), nil
	}
	vars := append([]int{i, j}, cond...)
	k := len(vars)
	sub := mat.NewDense(k, k, nil)
	for a := 0; a < k; a++ {
		for b := 0; b < k; b++ {
			sub.Set(a, b, corr.At(vars[a], vars[b]))
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(sub); err != nil {
		return 0, errSingular
	}
	denom := inv.At(0, 0) * inv.At(1, 1)
	if denom <= 0 {
		return 0, errSingular
	}
	return -inv.At(0, 1) / math.Sqrt(denom), nil
}

// fisherZPValue is the two-sided p-value of the Fisher-z transformed partial
// correlation.
func fisherZPValue(r float64, n, condSize int) float64 {
	df := float64(n - condSize - 3)
	if df <= 0 {
		return 1
	}
	if r >= 1 {
		r = 1 - 1e-12
	}
	if r <= -1 {
		r = -1 + 1e-12
	}
	z := 0.5 * math.Log((1+r)/(1-r))
	stat := math.Sqrt(df) * math.Abs(z)
	return math.Erfc(stat / math.Sqrt2)
}

// forEachSubset visits every size-k subset of items until fn reports done.
func forEachSubset(items []int, k int, fn func([]int) (bool, error)) (bool, error) {
	if k == 0 {
		return fn(nil)
	}
	if k > len(items) {
		return false, nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	buf := make([]int, k)
	for {
		for i, v := range idx {
			buf[i] = items[v]
		}
		done, err := fn(buf)
		if done || err != nil {
			return done, err
		}
		// next combination
		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return false, nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

type graph struct {
	p   int
	adj [][]bool // symmetric adjacency
	dir [][]bool // dir[i][j]: i -> j established
}

func newGraph(p int) *graph {
	g := &graph{p: p, adj: make([][]bool, p), dir: make([][]bool, p)}
	for i := range g.adj {
		g.adj[i] = make([]bool, p)
		g.dir[i] = make([]bool, p)
		for j := range g.adj[i] {
			g.adj[i][j] = i != j
		}
	}
	return g
}

func (g *graph) snapshot() *graph {
	c := newGraph(g.p)
	for i := range g.adj {
		copy(c.adj[i], g.adj[i])
		copy(c.dir[i], g.dir[i])
	}
	return c
}

func (g *graph) remove(i, j int) {
	g.adj[i][j] = false
	g.adj[j][i] = false
	g.dir[i][j] = false
	g.dir[j][i] = false
}

func (g *graph) neighborsExcept(i, j int) []int {
	var out []int
	for k := 0; k < g.p; k++ {
		if k != j && g.adj[i][k] {
			out = append(out, k)
		}
	}
	return out
}

func (g *graph) edges(columns []string) []Edge {
	var out []Edge
	for i := 0; i < g.p; i++ {
		for j := i + 1; j < g.p; j++ {
			if !g.adj[i][j] {
				continue
			}
			switch {
			case g.dir[i][j] && !g.dir[j][i]:
				out = append(out, Edge{From: columns[i], To: columns[j], Directed: true})
			case g.dir[j][i] && !g.dir[i][j]:
				out = append(out, Edge{From: columns[j], To: columns[i], Directed: true})
			default:
				out = append(out, Edge{From: columns[i], To: columns[j], Directed: false})
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].From != out[b].From {
			return out[a].From < out[b].From
		}
		return out[a].To < out[b].To
	})
	return out
}

// orient applies collider detection, Meek rule 1, and background priors.
func orient(g *graph, sepsets map[[2]int][]int, columns []string, cfg Config) {
	forbidden := forbiddenFunc(columns, cfg)

	// Colliders: i - k - j with i, j non-adjacent and k outside sepset(i, j).
	for i := 0; i < g.p; i++ {
		for j := i + 1; j < g.p; j++ {
			if g.adj[i][j] {
				continue
			}
			ss, ok := sepsets[[2]int{i, j}]
			if !ok {
				continue
			}
			for k := 0; k < g.p; k++ {
				if k == i || k == j || !g.adj[i][k] || !g.adj[j][k] {
					continue
				}
				if containsInt(ss, k) {
					continue
				}
				if !forbidden(i, k) {
					g.dir[i][k] = true
				}
				if !forbidden(j, k) {
					g.dir[j][k] = true
				}
			}
		}
	}

	// Priors on their own: an edge touching an exogenous variable points out
	// of it; an edge touching the outcome points into it.
	for i := 0; i < g.p; i++ {
		for j := 0; j < g.p; j++ {
			if i == j || !g.adj[i][j] || g.dir[i][j] || g.dir[j][i] {
				continue
			}
			if forbidden(j, i) && !forbidden(i, j) {
				g.dir[i][j] = true
			}
		}
	}

	// Meek rule 1: a -> b, b - c, a and c non-adjacent implies b -> c.
	for changed := true; changed; {
		changed = false
		for a := 0; a < g.p; a++ {
			for b := 0; b < g.p; b++ {
				if !g.dir[a][b] || g.dir[b][a] {
					continue
				}
				for c := 0; c < g.p; c++ {
					if c == a || c == b || !g.adj[b][c] || g.dir[b][c] || g.dir[c][b] || g.adj[a][c] {
						continue
					}
					if forbidden(b, c) {
						continue
					}
					g.dir[b][c] = true
					changed = true
				}
			}
		}
	}
}

// forbiddenFunc reports whether orienting from -> to violates the priors.
func forbiddenFunc(columns []string, cfg Config) func(from, to int) bool {
	exo := make(map[int]bool)
	outcome := -1
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	for _, e := range cfg.Exogenous {
		if i, ok := index[e]; ok {
			exo[i] = true
		}
	}
	if cfg.Outcome != "" {
		if i, ok := index[cfg.Outcome]; ok {
			outcome = i
		}
	}
	return func(from, to int) bool {
		if exo[to] {
			return true
		}
		if outcome >= 0 && from == outcome {
			return true
		}
		return false
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

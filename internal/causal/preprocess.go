// Package causal runs PC-stable skeleton discovery with Fisher-z
// partial-correlation tests and bootstrap edge-stability scoring over
// campaign feature tables.
package causal

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CollinearCutoff drops the second of any column pair correlated at least
// this strongly; near-duplicate columns make the partial-correlation
// matrices singular.
const CollinearCutoff = 0.9999

// Jitter scales, relative to each column's standard deviation. The stronger
// scale is the retry when the first still leaves singular test matrices.
const (
	JitterScale      = 1e-8
	JitterScaleRetry = 1e-7
)

// Prepared is a cleaned numeric matrix ready for independence testing.
type Prepared struct {
	Data    *mat.Dense
	Columns []string

	DroppedNaN       []string
	DroppedConstant  []string
	DroppedCollinear []string
	JitterScale      float64
}

// Prepare cleans a raw column-oriented table: drops columns with missing
// cells, zero-variance columns, and near-collinear columns, then adds a tiny
// seeded jitter so correlation matrices stay non-singular.
func Prepare(columns []string, values map[string][]float64, seed int64, jitterScale float64) (*Prepared, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("causal: no columns")
	}
	n := -1
	for _, c := range columns {
		col, ok := values[c]
		if !ok {
			return nil, fmt.Errorf("causal: missing values for column %s", c)
		}
		if n < 0 {
			n = len(col)
		} else if len(col) != n {
			return nil, fmt.Errorf("causal: column %s has %d rows, want %d", c, len(col), n)
		}
	}
	if n < 4 {
		return nil, fmt.Errorf("causal: need at least 4 rows, got %d", n)
	}

	p := &Prepared{JitterScale: jitterScale}

	var kept []string
	for _, c := range columns {
		if hasNaN(values[c]) {
			p.DroppedNaN = append(p.DroppedNaN, c)
			continue
		}
		kept = append(kept, c)
	}

	var varying []string
	for _, c := range kept {
		if stat.Variance(values[c], nil) <= 0 {
			p.DroppedConstant = append(p.DroppedConstant, c)
			continue
		}
		varying = append(varying, c)
	}

	// Near-collinear pairs keep the earlier column.
	var final []string
	for _, c := range varying {
		collinear := false
		for _, prev := range final {
			r := stat.Correlation(values[c], values[prev], nil)
			if math.Abs(r) >= CollinearCutoff {
				collinear = true
				break
			}
		}
		if collinear {
			p.DroppedCollinear = append(p.DroppedCollinear, c)
			continue
		}
		final = append(final, c)
	}
	if len(final) < 2 {
		return nil, fmt.Errorf("causal: fewer than 2 usable columns after cleaning")
	}

	rng := rand.New(rand.NewSource(seed))
	data := mat.NewDense(n, len(final), nil)
	for j, c := range final {
		col := values[c]
		sd := math.Sqrt(stat.Variance(col, nil))
		for i := 0; i < n; i++ {
			data.Set(i, j, col[i]+jitterScale*sd*rng.NormFloat64())
		}
	}

	p.Data = data
	p.Columns = final
	return p, nil
}

func hasNaN(col []float64) bool {
	for _, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// correlationMatrix computes the sample correlation matrix of the prepared
// data.
func correlationMatrix(data *mat.Dense) *mat.SymDense {
	_, p := data.Dims()
	out := mat.NewSymDense(p, nil)
	stat.CorrelationMatrix(out, data, nil)
	return out
}

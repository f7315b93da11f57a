package causal

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"
)

// chainTable simulates acetate -> flux width -> growth with independent
// noise, a plain causal chain.
func chainTable(n int, seed int64) ([]string, map[string][]float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		y[i] = x[i] + 0.3*rng.NormFloat64()
		z[i] = y[i] + 0.3*rng.NormFloat64()
	}
	cols := []string{"acetate_mM", "width__ACKr", "objective_value"}
	return cols, map[string][]float64{
		"acetate_mM":      x,
		"width__ACKr":     y,
		"objective_value": z,
	}
}

func TestPrepareDropsBadColumns(t *testing.T) {
	cols, values := chainTable(50, 1)
	values["with_nan"] = append(make([]float64, 49), math.NaN())
	values["constant"] = make([]float64, 50)
	dup := make([]float64, 50)
	copy(dup, values["acetate_mM"])
	values["dup"] = dup
	cols = append(cols, "with_nan", "constant", "dup")

	prep, err := Prepare(cols, values, 1, JitterScale)
	require.NoError(t, err)

	assert.Equal(t, []string{"acetate_mM", "width__ACKr", "objective_value"}, prep.Columns)
	assert.Equal(t, []string{"with_nan"}, prep.DroppedNaN)
	assert.Equal(t, []string{"constant"}, prep.DroppedConstant)
	assert.Equal(t, []string{"dup"}, prep.DroppedCollinear)

	rows, p := prep.Data.Dims()
	assert.Equal(t, 50, rows)
	assert.Equal(t, 3, p)
}

func TestPrepareValidation(t *testing.T) {
	_, err := Prepare(nil, nil, 1, JitterScale)
	assert.ErrorContains(t, err, "no columns")

	_, err = Prepare([]string{"a"}, map[string][]float64{}, 1, JitterScale)
	assert.ErrorContains(t, err, "missing values")

	_, err = Prepare([]string{"a", "b"}, map[string][]float64{
		"a": {1, 2, 3}, "b": {1, 2, 3},
	}, 1, JitterScale)
	assert.ErrorContains(t, err, "at least 4 rows")
}

func TestPartialCorrChainVanishes(t *testing.T) {
	// corr(x,z) = corr(x,y) * corr(y,z) is the chain signature; conditioning
	// on y must zero it out.
	corr := mat.NewSymDense(3, []float64{
		1, 0.8, 0.48,
		0.8, 1, 0.6,
		0.48, 0.6, 1,
	})
	r, err := partialCorr(corr, 0, 2, []int{1})
	require.NoError(t, err)
	assert.InDelta(t, 0, r, 1e-9)

	// Unconditioned case passes through the raw correlation.
	r, err = partialCorr(corr, 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, r)
}

func TestFisherZPValue(t *testing.T) {
	assert.InDelta(t, 1, fisherZPValue(0, 100, 0), 1e-12)
	assert.Less(t, fisherZPValue(0.9, 100, 0), 1e-6)
	// Not enough rows for the conditioning size.
	assert.Equal(t, 1.0, fisherZPValue(0.9, 4, 2))
}

func TestForEachSubset(t *testing.T) {
	var got [][]int
	done, err := forEachSubset([]int{1, 2, 3}, 2, func(s []int) (bool, error) {
		got = append(got, append([]int(nil), s...))
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, [][]int{{1, 2}, {1, 3}, {2, 3}}, got)

	// Early stop.
	calls := 0
	done, err = forEachSubset([]int{1, 2, 3}, 1, func(s []int) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, calls)

	// Subset larger than the set.
	done, err = forEachSubset([]int{1}, 2, func(s []int) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRunRecoversChain(t *testing.T) {
	cols, values := chainTable(300, 42)
	cfg := DefaultConfig()
	cfg.Exogenous = []string{"acetate_mM"}
	cfg.Outcome = "objective_value"

	res, err := Run(cols, values, cfg, 42)
	require.NoError(t, err)
	assert.Equal(t, 300, res.Rows)
	assert.Greater(t, res.Tests, 0)

	require.Len(t, res.Edges, 2)
	byPair := make(map[[2]string]Edge)
	for _, e := range res.Edges {
		byPair[pairKey(e.From, e.To)] = e
	}

	xy, ok := byPair[pairKey("acetate_mM", "width__ACKr")]
	require.True(t, ok, "acetate - width edge missing")
	assert.True(t, xy.Directed)
	assert.Equal(t, "acetate_mM", xy.From)

	yz, ok := byPair[pairKey("width__ACKr", "objective_value")]
	require.True(t, ok, "width - growth edge missing")
	assert.True(t, yz.Directed)
	assert.Equal(t, "objective_value", yz.To)

	// The indirect pair is separated by the mediator.
	_, ok = byPair[pairKey("acetate_mM", "objective_value")]
	assert.False(t, ok)
}

func TestRunValidation(t *testing.T) {
	cols, values := chainTable(20, 1)

	_, err := Run(cols, values, Config{Alpha: 0, MaxCond: 3}, 1)
	assert.ErrorContains(t, err, "alpha")

	_, err = Run(cols, values, Config{Alpha: 0.05, MaxCond: -1}, 1)
	assert.ErrorContains(t, err, "max conditioning size")
}

func TestBootstrapStability(t *testing.T) {
	cols, values := chainTable(200, 7)
	cfg := DefaultConfig()
	cfg.Exogenous = []string{"acetate_mM"}
	cfg.Outcome = "objective_value"

	stab, err := Bootstrap(context.Background(), cols, values, cfg, 10, 7)
	require.NoError(t, err)
	require.NotEmpty(t, stab)

	byPair := make(map[[2]string]float64)
	for _, s := range stab {
		byPair[pairKey(s.X, s.Y)] = s.Frequency
	}
	assert.Greater(t, byPair[pairKey("acetate_mM", "width__ACKr")], 0.7)
	assert.Greater(t, byPair[pairKey("width__ACKr", "objective_value")], 0.7)

	// Sorted by frequency descending.
	for i := 1; i < len(stab); i++ {
		assert.GreaterOrEqual(t, stab[i-1].Frequency, stab[i].Frequency)
	}

	_, err = Bootstrap(context.Background(), cols, values, cfg, 0, 1)
	assert.ErrorContains(t, err, "bootstrap count")
}

package causal

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/mcrovella/fluxtwin/internal/ctxlog"
)

// EdgeStability is the bootstrap frequency of one undirected edge.
type EdgeStability struct {
	X         string
	Y         string
	Frequency float64
}

// Bootstrap reruns PC on b row-resamples and reports how often each
// skeleton edge appears, direction ignored. Resamples where PC fails
// (degenerate draws) are skipped but still counted in the denominator.
func Bootstrap(ctx context.Context, columns []string, values map[string][]float64, cfg Config, b int, seed int64) ([]EdgeStability, error) {
	logger := ctxlog.FromContext(ctx)
	if b <= 0 {
		return nil, fmt.Errorf("causal: bootstrap count must be positive, got %d", b)
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

	rng := rand.New(rand.NewSource(seed))
	counts := make(map[[2]string]int)
	skipped := 0

	for rep := 0; rep < b; rep++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		sample := make(map[string][]float64, len(columns))
		for _, c := range columns {
			col := values[c]
			s := make([]float64, n)
			for i, r := range rows {
				s[i] = col[r]
			}
			sample[c] = s
		}

		res, err := Run(columns, sample, cfg, seed+int64(rep)+1)
		if err != nil {
			skipped++
			logger.Debug("bootstrap replicate skipped", "replicate", rep, "error", err)
			continue
		}
		for _, e := range res.Edges {
			counts[pairKey(e.From, e.To)]++
		}
	}
	if skipped > 0 {
		logger.Warn("bootstrap replicates skipped", "skipped", skipped, "total", b)
	}

	out := make([]EdgeStability, 0, len(counts))
	for k, c := range counts {
		out = append(out, EdgeStability{X: k[0], Y: k[1], Frequency: float64(c) / float64(b)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out, nil
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// Package sample generates campaign design tables via Latin hypercube
// sampling.
package sample

import (
	"fmt"
	"math/rand"
)

// Dimension is one sampled variable with an inclusive range.
type Dimension struct {
	Name string
	Lo   float64
	Hi   float64
}

// CampaignSpace is the default perturbation space for acetate campaigns:
// acetate concentration, oxygen and ammonium uptake caps, and the fixed
// ATPM flux.
func CampaignSpace() []Dimension {
	return []Dimension{
		{Name: "acetate_mM", Lo: 0, Hi: 200},
		{Name: "o2_uptake", Lo: 0, Hi: 20},
		{Name: "nh4_uptake", Lo: 0, Hi: 10},
		{Name: "atpm_fixed", Lo: 0, Hi: 25},
	}
}

// LatinHypercube draws n points stratified per dimension: each dimension's
// range is cut into n equal strata, one point is placed uniformly inside
// each stratum, and the strata are permuted independently per dimension.
// The result is row-major: out[i][d].
func LatinHypercube(n int, dims []Dimension, seed int64) ([][]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("lhs: sample count must be positive, got %d", n)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("lhs: no dimensions")
	}
	for _, d := range dims {
		if d.Hi < d.Lo {
			return nil, fmt.Errorf("lhs: dimension %s has hi < lo", d.Name)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, len(dims))
	}

	for d, dim := range dims {
		perm := rng.Perm(n)
		width := (dim.Hi - dim.Lo) / float64(n)
		for i := 0; i < n; i++ {
			u := (float64(perm[i]) + rng.Float64()) * width
			out[i][d] = dim.Lo + u
		}
	}
	return out, nil
}

// Package fba formulates flux balance analysis problems over a metabolic
// model and delegates the linear-programming solves to gonum's simplex
// implementation. The package owns only the stoichiometric matrix assembly
// and the standard-form conversion.
package fba

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/mcrovella/fluxtwin/internal/model"
)

// Status of an LP solve, mirroring solver status strings used by COBRA
// tooling.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
)

// simplexTol is the pivot tolerance handed to lp.Simplex.
const simplexTol = 1e-10

// Solution is the outcome of one FBA solve.
type Solution struct {
	Status    Status
	Objective float64
	fluxes    []float64
	index     map[string]int
}

// Flux returns the flux of a reaction id. Unknown ids return (0, false).
func (s *Solution) Flux(id string) (float64, bool) {
	if s.fluxes == nil {
		return 0, false
	}
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.fluxes[i], true
}

// Fluxes returns the flux vector in model reaction order.
func (s *Solution) Fluxes() []float64 { return s.fluxes }

// Range is the feasible flux interval of one reaction under an objective
// constraint.
type Range struct {
	ReactionID string
	Min        float64
	Max        float64
}

// Problem wraps a model for repeated LP solves.
type Problem struct {
	m *model.Model
}

// NewProblem prepares FBA solves over a model. The model is not copied;
// bound changes between calls are picked up by the next solve.
func NewProblem(m *model.Model) *Problem {
	return &Problem{m: m}
}

// objective returns the model objective coefficients over the flux vector.
func (p *Problem) objective() []float64 {
	c := make([]float64, len(p.m.Reactions))
	for i, r := range p.m.Reactions {
		c[i] = r.ObjectiveCoefficient
	}
	return c
}

// standardForm builds min cStd·x s.t. A x = b, x >= 0 for the flux system
//
//	S v = 0, lb <= v <= ub
//
// using the shift y = v - lb plus one slack column per reaction:
//
//	[ S 0 ] [y]   [-S lb ]
//	[ I I ] [s] = [ub-lb ]
//
// extraRows appends additional constraint rows over v (coefficients over the
// y block only; the rhs is adjusted by the caller for the lb shift).
type extraRow struct {
	coef []float64 // length = nRxn, over v
	rhs  float64   // over v
	// kind: 0 equality, +1 means coef·v >= rhs (surplus col), -1 coef·v <= rhs (slack col)
	kind int
}

func (p *Problem) standardForm(cv []float64, extras []extraRow) (c []float64, a *mat.Dense, b []float64) {
	n := len(p.m.Reactions)
	mMet := len(p.m.Metabolites)
	nExtraCols := 0
	for _, e := range extras {
		if e.kind != 0 {
			nExtraCols++
		}
	}
	rows := mMet + n + len(extras)
	cols := 2*n + nExtraCols

	a = mat.NewDense(rows, cols, nil)
	b = make([]float64, rows)
	c = make([]float64, cols)

	lb := make([]float64, n)
	for j, r := range p.m.Reactions {
		lb[j] = r.LowerBound
	}

	// S y = -S lb
	for j, r := range p.m.Reactions {
		for metID, coef := range r.Metabolites {
			i, ok := p.m.MetaboliteIndex(metID)
			if !ok {
				continue
			}
			a.Set(i, j, a.At(i, j)+coef)
			b[i] -= coef * lb[j]
		}
	}

	// y + s = ub - lb
	for j, r := range p.m.Reactions {
		a.Set(mMet+j, j, 1)
		a.Set(mMet+j, n+j, 1)
		b[mMet+j] = r.UpperBound - r.LowerBound
	}

	// extra rows over v, shifted to y
	extraCol := 2 * n
	for k, e := range extras {
		row := mMet + n + k
		rhs := e.rhs
		for j, coef := range e.coef {
			if coef == 0 {
				continue
			}
			a.Set(row, j, coef)
			rhs -= coef * lb[j]
		}
		switch e.kind {
		case +1: // coef·y - w = rhs
			a.Set(row, extraCol, -1)
			extraCol++
		case -1: // coef·y + w = rhs
			a.Set(row, extraCol, 1)
			extraCol++
		}
		b[row] = rhs
	}

	for j, v := range cv {
		c[j] = v
	}
	return c, a, b
}

// solve runs the simplex and maps solver failures to statuses.
func solve(c []float64, a *mat.Dense, b []float64) (float64, []float64, Status, error) {
	opt, x, err := lp.Simplex(c, a, b, simplexTol, nil)
	switch {
	case err == nil:
		return opt, x, StatusOptimal, nil
	case errors.Is(err, lp.ErrInfeasible):
		return 0, nil, StatusInfeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return 0, nil, StatusUnbounded, nil
	default:
		return 0, nil, "", fmt.Errorf("simplex: %w", err)
	}
}

// Optimize maximizes the model objective and returns the flux solution.
func (p *Problem) Optimize() (*Solution, error) {
	n := len(p.m.Reactions)
	cObj := p.objective()

	// maximize c·v == minimize -c·y, up to the constant -c·lb
	cv := make([]float64, n)
	offset := 0.0
	for j, r := range p.m.Reactions {
		cv[j] = -cObj[j]
		offset += cObj[j] * r.LowerBound
	}

	c, a, b := p.standardForm(cv, nil)
	opt, x, status, err := solve(c, a, b)
	if err != nil {
		return nil, err
	}
	if status != StatusOptimal {
		return &Solution{Status: status}, nil
	}

	fluxes := make([]float64, n)
	index := make(map[string]int, n)
	for j, r := range p.m.Reactions {
		fluxes[j] = x[j] + r.LowerBound
		index[r.ID] = j
	}
	return &Solution{
		Status:    StatusOptimal,
		Objective: -opt + offset,
		fluxes:    fluxes,
		index:     index,
	}, nil
}

// FluxVariability computes the min and max feasible flux of each target
// reaction while the objective is held at >= fraction * optimum.
// fraction must lie in (0, 1].
func (p *Problem) FluxVariability(targets []string, fraction float64) ([]Range, error) {
	if len(targets) == 0 {
		return nil, errors.New("fva: no target reactions")
	}
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("fva: fraction_of_optimum must be in (0, 1], got %g", fraction)
	}

	sol, err := p.Optimize()
	if err != nil {
		return nil, err
	}
	if sol.Status != StatusOptimal {
		return nil, fmt.Errorf("fva: FBA status %s", sol.Status)
	}

	n := len(p.m.Reactions)
	cObj := p.objective()
	pin := extraRow{coef: cObj, rhs: fraction * sol.Objective, kind: +1}

	out := make([]Range, 0, len(targets))
	for _, id := range targets {
		j, ok := p.m.ReactionIndex(id)
		if !ok {
			return nil, fmt.Errorf("fva: target reaction not in model: %s", id)
		}

		lo, err := p.directional(j, n, +1, []extraRow{pin})
		if err != nil {
			return nil, fmt.Errorf("fva %s (min): %w", id, err)
		}
		hi, err := p.directional(j, n, -1, []extraRow{pin})
		if err != nil {
			return nil, fmt.Errorf("fva %s (max): %w", id, err)
		}
		out = append(out, Range{ReactionID: id, Min: lo, Max: hi})
	}
	return out, nil
}

// directional minimizes sign*v_j under the given extra constraints and
// returns v_j. opt is over the shifted y_j, so the lb shift is undone here.
func (p *Problem) directional(j, n, sign int, extras []extraRow) (float64, error) {
	cv := make([]float64, n)
	cv[j] = float64(sign)
	c, a, b := p.standardForm(cv, extras)
	opt, _, status, err := solve(c, a, b)
	if err != nil {
		return 0, err
	}
	if status != StatusOptimal {
		return 0, fmt.Errorf("status %s", status)
	}
	return float64(sign)*opt + p.m.Reactions[j].LowerBound, nil
}

// BlockedReactions returns reaction ids that cannot carry flux in either
// direction under the current bounds, ignoring the objective.
func (p *Problem) BlockedReactions(eps float64) ([]string, error) {
	if eps <= 0 {
		eps = 1e-9
	}
	n := len(p.m.Reactions)
	var blocked []string
	for j, r := range p.m.Reactions {
		lo, err := p.directional(j, n, +1, nil)
		if err != nil {
			return nil, fmt.Errorf("blocked scan %s: %w", r.ID, err)
		}
		hi, err := p.directional(j, n, -1, nil)
		if err != nil {
			return nil, fmt.Errorf("blocked scan %s: %w", r.ID, err)
		}
		if lo > -eps && lo < eps && hi > -eps && hi < eps {
			blocked = append(blocked, r.ID)
		}
	}
	return blocked, nil
}

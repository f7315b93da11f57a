package fba

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Parsimonious runs pFBA: it pins the objective at its optimum and then
// minimizes the total absolute flux. Each reaction is split into forward
// and backward components (v = p - q, p,q >= 0) so that |v| = p + q at the
// optimum of the inner problem.
func (p *Problem) Parsimonious() (*Solution, error) {
	base, err := p.Optimize()
	if err != nil {
		return nil, err
	}
	if base.Status != StatusOptimal {
		return base, nil
	}

	n := len(p.m.Reactions)
	mMet := len(p.m.Metabolites)
	cObj := p.objective()

	// columns: p | q | ub-slack | lb-surplus
	rows := mMet + 2*n + 1
	cols := 4 * n
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)

	for j, r := range p.m.Reactions {
		for metID, coef := range r.Metabolites {
			i, ok := p.m.MetaboliteIndex(metID)
			if !ok {
				continue
			}
			a.Set(i, j, a.At(i, j)+coef)
			a.Set(i, n+j, a.At(i, n+j)-coef)
		}
	}
	for j, r := range p.m.Reactions {
		// p - q + w = ub
		rowUB := mMet + j
		a.Set(rowUB, j, 1)
		a.Set(rowUB, n+j, -1)
		a.Set(rowUB, 2*n+j, 1)
		b[rowUB] = r.UpperBound

		// p - q - z = lb
		rowLB := mMet + n + j
		a.Set(rowLB, j, 1)
		a.Set(rowLB, n+j, -1)
		a.Set(rowLB, 3*n+j, -1)
		b[rowLB] = r.LowerBound
	}
	objRow := mMet + 2*n
	for j := range p.m.Reactions {
		a.Set(objRow, j, cObj[j])
		a.Set(objRow, n+j, -cObj[j])
	}
	b[objRow] = base.Objective

	for j := 0; j < 2*n; j++ {
		c[j] = 1
	}

	_, x, status, err := solve(c, a, b)
	if err != nil {
		return nil, err
	}
	if status != StatusOptimal {
		return nil, fmt.Errorf("pfba: inner solve status %s", status)
	}

	fluxes := make([]float64, n)
	index := make(map[string]int, n)
	for j, r := range p.m.Reactions {
		fluxes[j] = x[j] - x[n+j]
		index[r.ID] = j
	}
	return &Solution{
		Status:    StatusOptimal,
		Objective: base.Objective,
		fluxes:    fluxes,
		index:     index,
	}, nil
}

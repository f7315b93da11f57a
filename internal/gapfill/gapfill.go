// Package gapfill repairs non-growing draft models by borrowing reactions
// from a reference universe and pruning the additions back to a minimal set.
package gapfill

import (
	"context"
	"fmt"
	"sort"

	"github.com/mcrovella/fluxtwin/internal/ctxlog"
	"github.com/mcrovella/fluxtwin/internal/fba"
	"github.com/mcrovella/fluxtwin/internal/model"
)

// DefaultGrowthThreshold is the minimum objective value counted as growth.
const DefaultGrowthThreshold = 1e-6

// Addition is one reaction kept in the minimal gap-filling set.
type Addition struct {
	ReactionID string
	// GrowthWithout is the objective value when only this addition is
	// disabled; below the threshold by construction.
	GrowthWithout float64
}

// Result of a gap-filling run.
type Result struct {
	CandidateCount int
	Growth         float64
	MinimalSet     []Addition
}

// Fill adds every universe reaction missing from the draft, verifies the
// repaired model grows, then greedily disables additions whose removal keeps
// growth above the threshold. threshold <= 0 uses DefaultGrowthThreshold.
func Fill(ctx context.Context, draft, universe *model.Model, threshold float64) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if threshold <= 0 {
		threshold = DefaultGrowthThreshold
	}
	if len(draft.ObjectiveIDs()) == 0 {
		return nil, fmt.Errorf("gapfill: draft model has no objective reaction")
	}

	work := draft.Clone()
	candidates, err := addMissing(work, universe)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("gapfill: universe adds no reactions beyond the draft")
	}
	logger.Info("universe candidates added", "count", len(candidates))

	growth, err := objective(work)
	if err != nil {
		return nil, err
	}
	if growth < threshold {
		return nil, fmt.Errorf("gapfill: growth %.3g below threshold %.3g even with the full universe", growth, threshold)
	}

	// Greedy reverse pruning in sorted order for determinism.
	sort.Strings(candidates)
	type bounds struct{ lb, ub float64 }
	disabled := make(map[string]bool, len(candidates))
	saved := make(map[string]bounds, len(candidates))

	for _, rid := range candidates {
		r := work.Reaction(rid)
		saved[rid] = bounds{r.LowerBound, r.UpperBound}
		if err := r.SetBounds(0, 0); err != nil {
			return nil, err
		}
		g, err := objective(work)
		if err != nil {
			return nil, err
		}
		if g >= threshold {
			disabled[rid] = true
			continue
		}
		b := saved[rid]
		if err := r.SetBounds(b.lb, b.ub); err != nil {
			return nil, err
		}
	}

	var kept []string
	for _, rid := range candidates {
		if !disabled[rid] {
			kept = append(kept, rid)
		}
	}
	logger.Info("pruning done", "kept", len(kept), "pruned", len(candidates)-len(kept))

	res := &Result{CandidateCount: len(candidates), MinimalSet: make([]Addition, 0, len(kept))}
	res.Growth, err = objective(work)
	if err != nil {
		return nil, err
	}

	// Essentiality of each kept addition within the pruned model.
	for _, rid := range kept {
		r := work.Reaction(rid)
		b := bounds{r.LowerBound, r.UpperBound}
		if err := r.SetBounds(0, 0); err != nil {
			return nil, err
		}
		g, err := objective(work)
		if err != nil {
			return nil, err
		}
		if err := r.SetBounds(b.lb, b.ub); err != nil {
			return nil, err
		}
		res.MinimalSet = append(res.MinimalSet, Addition{ReactionID: rid, GrowthWithout: g})
	}
	return res, nil
}

// addMissing copies universe reactions absent from the draft, together with
// any metabolites they need. Returns the added reaction ids in universe
// order.
func addMissing(work *model.Model, universe *model.Model) ([]string, error) {
	var added []string
	for _, ur := range universe.Reactions {
		if work.HasReaction(ur.ID) {
			continue
		}
		for mid := range ur.Metabolites {
			if _, ok := work.MetaboliteIndex(mid); ok {
				continue
			}
			um := universe.Metabolite(mid)
			if um == nil {
				return nil, fmt.Errorf("gapfill: universe reaction %s references unknown metabolite %s", ur.ID, mid)
			}
			mcp := *um
			if err := work.AddMetabolite(&mcp); err != nil {
				return nil, err
			}
		}
		cp := *ur
		cp.Metabolites = make(map[string]float64, len(ur.Metabolites))
		for mid, coef := range ur.Metabolites {
			cp.Metabolites[mid] = coef
		}
		cp.ObjectiveCoefficient = 0
		if err := work.AddReaction(&cp); err != nil {
			return nil, err
		}
		added = append(added, ur.ID)
	}
	return added, nil
}

func objective(m *model.Model) (float64, error) {
	sol, err := fba.NewProblem(m).Optimize()
	if err != nil {
		return 0, err
	}
	if sol.Status != fba.StatusOptimal {
		return 0, nil
	}
	return sol.Objective, nil
}

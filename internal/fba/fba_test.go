package fba

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrovella/fluxtwin/internal/model"
)

// linearModel is a three-reaction chain: A uptake, A -> B, biomass drain on B.
// With uptake capped at 10 the optimum growth is 10.
func linearModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("linear",
		[]*model.Metabolite{
			{ID: "a_c", Compartment: "c"},
			{ID: "b_c", Compartment: "c"},
		},
		[]*model.Reaction{
			{ID: "EX_a_e", LowerBound: -10, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1}},
			{ID: "R1", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1, "b_c": 1}},
			{ID: "BIO", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"b_c": -1}, ObjectiveCoefficient: 1},
		})
	require.NoError(t, err)
	return m
}

func TestOptimize(t *testing.T) {
	p := NewProblem(linearModel(t))
	sol, err := p.Optimize()
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 10, sol.Objective, 1e-8)

	v, ok := sol.Flux("EX_a_e")
	require.True(t, ok)
	assert.InDelta(t, -10, v, 1e-8)
	v, ok = sol.Flux("R1")
	require.True(t, ok)
	assert.InDelta(t, 10, v, 1e-8)

	_, ok = sol.Flux("ghost")
	assert.False(t, ok)
}

func TestOptimizePicksUpBoundChanges(t *testing.T) {
	m := linearModel(t)
	p := NewProblem(m)

	sol, err := p.Optimize()
	require.NoError(t, err)
	assert.InDelta(t, 10, sol.Objective, 1e-8)

	require.NoError(t, m.Reaction("EX_a_e").SetBounds(-4, model.DefaultBound))
	sol, err = p.Optimize()
	require.NoError(t, err)
	assert.InDelta(t, 4, sol.Objective, 1e-8)
}

func TestOptimizeInfeasible(t *testing.T) {
	m := linearModel(t)
	// Demand more growth than the uptake cap can supply.
	require.NoError(t, m.Reaction("BIO").SetBounds(20, model.DefaultBound))

	sol, err := NewProblem(m).Optimize()
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Fluxes())
}

func TestFluxVariabilityPinned(t *testing.T) {
	p := NewProblem(linearModel(t))
	ranges, err := p.FluxVariability([]string{"EX_a_e", "R1", "BIO"}, 1.0)
	require.NoError(t, err)
	require.Len(t, ranges, 3)

	byID := make(map[string]Range)
	for _, r := range ranges {
		byID[r.ReactionID] = r
	}
	assert.InDelta(t, -10, byID["EX_a_e"].Min, 1e-6)
	assert.InDelta(t, -10, byID["EX_a_e"].Max, 1e-6)
	assert.InDelta(t, 10, byID["R1"].Min, 1e-6)
	assert.InDelta(t, 10, byID["R1"].Max, 1e-6)
	assert.InDelta(t, 10, byID["BIO"].Min, 1e-6)
	assert.InDelta(t, 10, byID["BIO"].Max, 1e-6)
}

func TestFluxVariabilityRelaxed(t *testing.T) {
	p := NewProblem(linearModel(t))
	ranges, err := p.FluxVariability([]string{"EX_a_e", "BIO"}, 0.5)
	require.NoError(t, err)

	byID := make(map[string]Range)
	for _, r := range ranges {
		byID[r.ReactionID] = r
	}
	// Growth may slide between 5 and 10, uptake follows.
	assert.InDelta(t, 5, byID["BIO"].Min, 1e-6)
	assert.InDelta(t, 10, byID["BIO"].Max, 1e-6)
	assert.InDelta(t, -10, byID["EX_a_e"].Min, 1e-6)
	assert.InDelta(t, -5, byID["EX_a_e"].Max, 1e-6)
}

func TestFluxVariabilityValidation(t *testing.T) {
	p := NewProblem(linearModel(t))

	_, err := p.FluxVariability(nil, 0.9)
	assert.ErrorContains(t, err, "no target reactions")

	_, err = p.FluxVariability([]string{"BIO"}, 0)
	assert.ErrorContains(t, err, "fraction_of_optimum")

	_, err = p.FluxVariability([]string{"ghost"}, 0.9)
	assert.ErrorContains(t, err, "not in model")
}

func TestParsimoniousDrainsFutileCycle(t *testing.T) {
	m := linearModel(t)
	// B -> A back-reaction closes a cycle that carries no benefit.
	require.NoError(t, m.AddReaction(&model.Reaction{
		ID: "LOOP", LowerBound: 0, UpperBound: model.DefaultBound,
		Metabolites: map[string]float64{"b_c": -1, "a_c": 1},
	}))

	sol, err := NewProblem(m).Parsimonious()
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 10, sol.Objective, 1e-8)

	loop, _ := sol.Flux("LOOP")
	assert.InDelta(t, 0, loop, 1e-6)
	r1, _ := sol.Flux("R1")
	assert.InDelta(t, 10, r1, 1e-6)
}

func TestBlockedReactions(t *testing.T) {
	m := linearModel(t)
	// C has no outlet, so the branch producing it can never carry flux.
	require.NoError(t, m.AddMetabolite(&model.Metabolite{ID: "c_c", Compartment: "c"}))
	require.NoError(t, m.AddReaction(&model.Reaction{
		ID: "DEAD", LowerBound: 0, UpperBound: model.DefaultBound,
		Metabolites: map[string]float64{"b_c": -1, "c_c": 1},
	}))

	blocked, err := NewProblem(m).BlockedReactions(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DEAD"}, blocked)
}

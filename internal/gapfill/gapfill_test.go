package gapfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrovella/fluxtwin/internal/model"
)

// draftModel can take A up but has no route to biomass precursor B.
func draftModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("draft",
		[]*model.Metabolite{{ID: "a_c"}, {ID: "b_c"}},
		[]*model.Reaction{
			{ID: "EX_a_e", LowerBound: -10, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1}},
			{ID: "BIO", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"b_c": -1}, ObjectiveCoefficient: 1},
		})
	require.NoError(t, err)
	return m
}

// universeModel carries a direct A -> B route and a two-step route via C.
func universeModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("universe",
		[]*model.Metabolite{{ID: "a_c"}, {ID: "b_c"}, {ID: "c_c"}},
		[]*model.Reaction{
			{ID: "EX_a_e", LowerBound: -10, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1}},
			{ID: "R1", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1, "b_c": 1}},
			{ID: "R2", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1, "c_c": 1}},
			{ID: "R3", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"c_c": -1, "b_c": 1}},
		})
	require.NoError(t, err)
	return m
}

func TestFillFindsMinimalSet(t *testing.T) {
	draft := draftModel(t)
	res, err := Fill(context.Background(), draft, universeModel(t), 0)
	require.NoError(t, err)

	assert.Equal(t, 3, res.CandidateCount)
	assert.InDelta(t, 10, res.Growth, 1e-6)

	// Greedy pruning in sorted order drops R1 first; the R2+R3 route stays.
	require.Len(t, res.MinimalSet, 2)
	assert.Equal(t, "R2", res.MinimalSet[0].ReactionID)
	assert.Equal(t, "R3", res.MinimalSet[1].ReactionID)
	for _, add := range res.MinimalSet {
		assert.Less(t, add.GrowthWithout, DefaultGrowthThreshold)
	}

	// The caller's draft is untouched.
	assert.False(t, draft.HasReaction("R2"))
}

func TestFillRequiresObjective(t *testing.T) {
	draft := draftModel(t)
	draft.Reaction("BIO").ObjectiveCoefficient = 0

	_, err := Fill(context.Background(), draft, universeModel(t), 0)
	assert.ErrorContains(t, err, "no objective reaction")
}

func TestFillNoCandidates(t *testing.T) {
	draft := draftModel(t)
	universe := draftModel(t)

	_, err := Fill(context.Background(), draft, universe, 0)
	assert.ErrorContains(t, err, "adds no reactions")
}

func TestFillUniverseCannotRepair(t *testing.T) {
	draft := draftModel(t)
	// The only new reaction leads to a dead end.
	universe, err := model.New("weak",
		[]*model.Metabolite{{ID: "a_c"}, {ID: "c_c"}},
		[]*model.Reaction{
			{ID: "R2", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1, "c_c": 1}},
		})
	require.NoError(t, err)

	_, err = Fill(context.Background(), draft, universe, 0)
	assert.ErrorContains(t, err, "below threshold")
}

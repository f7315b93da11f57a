package calibrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
)

func f64(v float64) *float64 { return &v }

// maintenanceModel: acetate uptake feeds B, which splits between a fixed
// maintenance drain and biomass. Growth = uptake - ATPM while feasible.
func maintenanceModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("maint",
		[]*model.Metabolite{{ID: "a_c"}, {ID: "b_c"}},
		[]*model.Reaction{
			{ID: "EX_ac_e", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1}},
			{ID: "R1", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"a_c": -1, "b_c": 1}},
			{ID: "ATPM", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"b_c": -1}},
			{ID: "BIO", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"b_c": -1}, ObjectiveCoefficient: 1},
		})
	require.NoError(t, err)
	return m
}

func scanConfig() *medium.Config {
	return &medium.Config{
		Exchanges: map[string]string{"acetate": "EX_ac_e", "ammonium": "EX_nh4_e"},
		Scaling:   medium.Scaling{KAc: 0.1, KNH4: 1},
	}
}

func TestGrid(t *testing.T) {
	g, err := Grid(0, 25, 2.5)
	require.NoError(t, err)
	require.Len(t, g, 11)
	assert.Equal(t, 0.0, g[0])
	assert.InDelta(t, 25.0, g[10], 1e-9)

	_, err = Grid(0, 10, 0)
	assert.Error(t, err)
	_, err = Grid(10, 0, 1)
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	m := maintenanceModel(t)
	anchors := []*domain.Condition{
		{ID: "a1", AcetateMM: f64(100), MeasuredOD: f64(1.0)},
		{ID: "a2", AcetateMM: f64(50), MeasuredOD: f64(0.4)},
	}

	rows, err := Scan(context.Background(), m, scanConfig(), anchors, "ATPM", []float64{0, 5})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Anchor a1: uptake cap 10, growth = 10 - atpm.
	assert.InDelta(t, 10, rows[0].Growth, 1e-6)
	assert.InDelta(t, 5, rows[1].Growth, 1e-6)
	// Anchor a2: uptake cap 5.
	assert.InDelta(t, 5, rows[2].Growth, 1e-6)
	assert.InDelta(t, 0, rows[3].Growth, 1e-6)
	assert.Equal(t, "optimal", rows[0].Status)

	// The input model keeps its bounds.
	assert.Equal(t, 0.0, m.Reaction("ATPM").LowerBound)
}

func TestScanInfeasibleRecordsZeroGrowth(t *testing.T) {
	m := maintenanceModel(t)
	anchors := []*domain.Condition{{ID: "a1", AcetateMM: f64(50), MeasuredOD: f64(0.5)}}

	rows, err := Scan(context.Background(), m, scanConfig(), anchors, "ATPM", []float64{20})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "infeasible", rows[0].Status)
	assert.Equal(t, 0.0, rows[0].Growth)
}

func TestScanValidation(t *testing.T) {
	m := maintenanceModel(t)
	ctx := context.Background()

	_, err := Scan(ctx, m, scanConfig(), nil, "ATPM", []float64{0})
	assert.ErrorContains(t, err, "no anchor conditions")

	anchors := []*domain.Condition{{ID: "a1", AcetateMM: f64(1), MeasuredOD: f64(1)}}
	_, err = Scan(ctx, m, scanConfig(), anchors, "GHOST", []float64{0})
	assert.ErrorContains(t, err, "maintenance reaction not in model")

	_, err = Scan(ctx, m, scanConfig(), []*domain.Condition{{ID: "a1", MeasuredOD: f64(1)}}, "ATPM", []float64{0})
	assert.ErrorContains(t, err, "no acetate_mM")
}

func scanRows(cond string, ac, od float64, atpm, growth []float64) []ScanRow {
	out := make([]ScanRow, len(atpm))
	for i := range atpm {
		out[i] = ScanRow{Condition: cond, AcetateMM: ac, MeasuredOD: od, ATPM: atpm[i], Growth: growth[i], Status: "optimal"}
	}
	return out
}

func TestPickNorm(t *testing.T) {
	rows := append(
		scanRows("a1", 100, 1.0, []float64{0, 10}, []float64{10, 6}),
		scanRows("a2", 50, 0.5, []float64{0, 10}, []float64{8, 4})...)

	best, err := Pick(rows, ModeNorm)
	require.NoError(t, err)
	require.Len(t, best, 2)

	// a1 tracks the column max exactly; the first tied grid point wins.
	assert.Equal(t, 0.0, best[0].ATPM)
	// a2: |8/10-0.5| = 0.30 vs |4/6-0.5| ~ 0.17.
	assert.Equal(t, 10.0, best[1].ATPM)
}

func TestPickRankTieTakesLargerATPM(t *testing.T) {
	rows := append(
		scanRows("a1", 100, 1.0, []float64{0, 5}, []float64{3, 1}),
		scanRows("a2", 50, 0.5, []float64{0, 5}, []float64{2, 0.5})...)

	best, err := Pick(rows, ModeRank)
	require.NoError(t, err)
	require.Len(t, best, 2)
	// Three combinations are fully concordant; the largest total ATPM wins.
	assert.Equal(t, 5.0, best[0].ATPM)
	assert.Equal(t, 5.0, best[1].ATPM)
}

func TestPickRankAnchorCap(t *testing.T) {
	var rows []ScanRow
	for i := 0; i < 5; i++ {
		rows = append(rows, scanRows(string(rune('a'+i)), float64(i), float64(i), []float64{0}, []float64{1})...)
	}
	_, err := Pick(rows, ModeRank)
	assert.ErrorContains(t, err, "at most 4 anchors")
}

func TestPickUnknownMode(t *testing.T) {
	_, err := Pick(scanRows("a1", 1, 1, []float64{0}, []float64{1}), "median")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestFitLinear(t *testing.T) {
	best := []Best{
		{Condition: "a1", AcetateMM: 0, ATPM: 5},
		{Condition: "a2", AcetateMM: 100, ATPM: 15},
	}
	fit, err := Fit(best, ModeNorm)
	require.NoError(t, err)
	assert.InDelta(t, 5, fit.A, 1e-9)
	assert.InDelta(t, 0.1, fit.B, 1e-9)
	assert.Equal(t, "atpm_linear", fit.FitType)
	assert.Equal(t, []string{"a1", "a2"}, fit.AnchorsUsed)
	assert.NotEmpty(t, fit.ID)

	assert.InDelta(t, 10, fit.Eval(50), 1e-9)
	// Clipped at the configured range.
	assert.Equal(t, DefaultClipMax, fit.Eval(1e9))
	fit.B = -1
	assert.Equal(t, DefaultClipMin, fit.Eval(1e9))
}

func TestFitDegenerate(t *testing.T) {
	best := []Best{
		{Condition: "a1", AcetateMM: 50, ATPM: 4},
		{Condition: "a2", AcetateMM: 50, ATPM: 8},
	}
	fit, err := Fit(best, ModeRank)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fit.B)
	assert.InDelta(t, 6, fit.A, 1e-9)

	_, err = Fit(nil, ModeRank)
	assert.Error(t, err)
}

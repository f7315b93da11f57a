package campaign

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
	"github.com/mcrovella/fluxtwin/internal/ports"
	"github.com/mcrovella/fluxtwin/internal/regime"
)

// campaignModel grows on acetate, oxygen, and ammonium, with a maintenance
// drain on acetate. Growth = min(ac_cap - atpm, o2_cap, nh4_cap).
func campaignModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("camp",
		[]*model.Metabolite{{ID: "ac_c"}, {ID: "o2_c"}, {ID: "nh4_c"}, {ID: "x_c"}},
		[]*model.Reaction{
			{ID: "EX_ac_e", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"ac_c": -1}},
			{ID: "EX_o2_e", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"o2_c": -1}},
			{ID: "EX_nh4_e", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"nh4_c": -1}},
			{ID: "R1", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"ac_c": -1, "x_c": 1}},
			{ID: "ATPM", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"ac_c": -1}},
			{ID: "BIO", LowerBound: 0, UpperBound: model.DefaultBound, Metabolites: map[string]float64{"x_c": -1, "o2_c": -1, "nh4_c": -1}, ObjectiveCoefficient: 1},
		})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func campaignMedium() *medium.Config {
	return &medium.Config{
		Exchanges: map[string]string{"acetate": "EX_ac_e", "ammonium": "EX_nh4_e"},
		Scaling:   medium.Scaling{KAc: 0.1, KNH4: 1},
	}
}

func campaignCandidates() regime.Candidates {
	return regime.Candidates{
		"acetate":  {"EX_ac_e"},
		"ammonium": {"EX_nh4_e"},
		"oxygen":   {"EX_o2_e"},
	}
}

type campaignRepoMock struct {
	created []*domain.Campaign
	ended   map[string]time.Time
}

func (m *campaignRepoMock) Create(ctx context.Context, c *domain.Campaign) error {
	m.created = append(m.created, c)
	return nil
}

func (m *campaignRepoMock) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	return nil, nil
}

func (m *campaignRepoMock) List(ctx context.Context, limit int) ([]*domain.Campaign, error) {
	return nil, nil
}

func (m *campaignRepoMock) MarkEnded(ctx context.Context, id string, endedAt time.Time) error {
	if m.ended == nil {
		m.ended = make(map[string]time.Time)
	}
	m.ended[id] = endedAt
	return nil
}

type resultRepoMock struct {
	batches [][]*domain.ConditionResult
}

func (m *resultRepoMock) CreateBatch(ctx context.Context, results []*domain.ConditionResult) error {
	m.batches = append(m.batches, results)
	return nil
}

func (m *resultRepoMock) ListByCampaign(ctx context.Context, campaignID string) ([]*domain.ConditionResult, error) {
	return nil, nil
}

type fvaRepoMock struct {
	campaignID string
	rows       []domain.FVARow
}

func (m *fvaRepoMock) CreateBatch(ctx context.Context, campaignID string, rows []domain.FVARow) error {
	m.campaignID = campaignID
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *fvaRepoMock) ListByCampaign(ctx context.Context, campaignID string) ([]domain.FVARow, error) {
	return nil, nil
}

type metricsMock struct {
	exports []*ports.ConditionMetrics
}

func (m *metricsMock) ExportConditionMetrics(ctx context.Context, cm *ports.ConditionMetrics) error {
	m.exports = append(m.exports, cm)
	return nil
}

func (m *metricsMock) Close(ctx context.Context) error { return nil }

func countLines(t *testing.T, path string) int {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return len(strings.Split(strings.TrimSpace(string(raw)), "\n"))
}

func TestRunCampaign(t *testing.T) {
	campaigns := &campaignRepoMock{}
	results := &resultRepoMock{}
	fvaRepo := &fvaRepoMock{}
	metrics := &metricsMock{}
	outDir := t.TempDir()

	r := &Runner{
		Model:             campaignModel(t),
		ModelPath:         "camp.json",
		Medium:            campaignMedium(),
		Candidates:        campaignCandidates(),
		Targets:           []string{"R1", "BIO"},
		Workers:           3,
		FractionOfOptimum: 1.0,
		Campaigns:         campaigns,
		Results:           results,
		FVA:               fvaRepo,
		Metrics:           metrics,
		OutDir:            outDir,
	}

	const samples = 12
	out, err := r.Run(context.Background(), "smoke", samples, 42)
	if err != nil {
		t.Fatal(err)
	}

	if out.Campaign.ATPMMode != ATPMModeSampled {
		t.Errorf("atpm mode = %s, want %s", out.Campaign.ATPMMode, ATPMModeSampled)
	}
	if out.Campaign.EndedAt == nil {
		t.Error("campaign not marked ended")
	}
	if got := len(out.Results) + len(out.Failures); got != samples {
		t.Fatalf("results + failures = %d, want %d", got, samples)
	}
	if len(out.Results) == 0 {
		t.Fatal("no condition solved; expected some feasible samples")
	}
	if len(out.Failures) == 0 {
		t.Fatal("no failures; the maintenance range should exceed uptake for some samples")
	}

	prev := ""
	for _, res := range out.Results {
		if res.Status != "optimal" {
			t.Errorf("condition %s status %s", res.ConditionID, res.Status)
		}
		if res.PrimaryRegime == "" {
			t.Errorf("condition %s has empty regime label", res.ConditionID)
		}
		if len(res.Saturations) != len(regime.Nutrients) {
			t.Errorf("condition %s has %d saturations, want %d", res.ConditionID, len(res.Saturations), len(regime.Nutrients))
		}
		if res.ConditionID <= prev {
			t.Errorf("results out of order: %s after %s", res.ConditionID, prev)
		}
		prev = res.ConditionID
	}
	if want := 2 * len(out.Results); len(out.FVARows) != want {
		t.Errorf("fva rows = %d, want %d", len(out.FVARows), want)
	}

	// Recording ports.
	if len(campaigns.created) != 1 {
		t.Fatalf("campaigns created = %d, want 1", len(campaigns.created))
	}
	if _, ok := campaigns.ended[out.Campaign.ID]; !ok {
		t.Error("MarkEnded not called")
	}
	if len(results.batches) != 1 || len(results.batches[0]) != len(out.Results) {
		t.Error("condition results not recorded in one batch")
	}
	if fvaRepo.campaignID != out.Campaign.ID || len(fvaRepo.rows) != len(out.FVARows) {
		t.Error("fva rows not recorded")
	}
	if len(metrics.exports) != samples {
		t.Errorf("metric exports = %d, want %d", len(metrics.exports), samples)
	}

	// Artifacts.
	if got := countLines(t, filepath.Join(outDir, LabelsFile)); got != len(out.Results)+1 {
		t.Errorf("labels file has %d lines, want %d", got, len(out.Results)+1)
	}
	if got := countLines(t, filepath.Join(outDir, FailuresFile)); got != len(out.Failures)+1 {
		t.Errorf("failures file has %d lines, want %d", got, len(out.Failures)+1)
	}
	parts, err := filepath.Glob(filepath.Join(outDir, PartsDir, "*.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != len(out.Results) {
		t.Errorf("part files = %d, want %d", len(parts), len(out.Results))
	}
}

func TestRunCampaignCalibrated(t *testing.T) {
	fit := &domain.CalibrationFit{FitType: "atpm_linear", A: 1, B: 0, ClipMin: 0, ClipMax: 200}
	r := &Runner{
		Model:             campaignModel(t),
		Medium:            campaignMedium(),
		Candidates:        campaignCandidates(),
		Targets:           []string{"BIO"},
		Workers:           2,
		FractionOfOptimum: 0.9,
		Fit:               fit,
	}

	out, err := r.Run(context.Background(), "calibrated", 8, 7)
	if err != nil {
		t.Fatal(err)
	}
	if out.Campaign.ATPMMode != ATPMModeCalibrated {
		t.Errorf("atpm mode = %s, want %s", out.Campaign.ATPMMode, ATPMModeCalibrated)
	}
	for _, res := range out.Results {
		if res.ATPMFixed != 1 {
			t.Errorf("condition %s atpm = %g, want the fitted 1", res.ConditionID, res.ATPMFixed)
		}
	}
}

func TestRunnerValidation(t *testing.T) {
	base := func() *Runner {
		return &Runner{
			Model:             campaignModel(t),
			Medium:            campaignMedium(),
			Candidates:        campaignCandidates(),
			Targets:           []string{"BIO"},
			FractionOfOptimum: 0.9,
		}
	}
	ctx := context.Background()

	r := base()
	r.Model = nil
	if _, err := r.Run(ctx, "x", 2, 1); err == nil {
		t.Error("expected error for missing model")
	}

	r = base()
	r.Targets = nil
	if _, err := r.Run(ctx, "x", 2, 1); err == nil {
		t.Error("expected error for empty targets")
	}

	r = base()
	r.FractionOfOptimum = 1.5
	if _, err := r.Run(ctx, "x", 2, 1); err == nil {
		t.Error("expected error for fraction > 1")
	}

	r = base()
	r.ATPMReaction = "GHOST"
	if _, err := r.Run(ctx, "x", 2, 1); err == nil {
		t.Error("expected error for unknown maintenance reaction")
	}
}

func TestRunCampaignContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{
		Model:             campaignModel(t),
		Medium:            campaignMedium(),
		Candidates:        campaignCandidates(),
		Targets:           []string{"BIO"},
		Workers:           1,
		FractionOfOptimum: 1.0,
	}
	if _, err := r.Run(ctx, "cancelled", 4, 1); err == nil {
		t.Error("expected context error")
	}
}

// Package campaign orchestrates sampled simulation campaigns: a Latin
// hypercube design fanned out over a worker pool, each condition solved with
// FBA plus targeted FVA and labeled with its growth-limiting regime.
package campaign

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcrovella/fluxtwin/internal/ctxlog"
	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/fba"
	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
	"github.com/mcrovella/fluxtwin/internal/ports"
	"github.com/mcrovella/fluxtwin/internal/regime"
	"github.com/mcrovella/fluxtwin/internal/sample"
)

// ATPM modes.
const (
	ATPMModeSampled    = "sampled"
	ATPMModeCalibrated = "calibrated"
)

// DefaultATPMReaction is the conventional maintenance reaction id.
const DefaultATPMReaction = "ATPM"

// Runner wires one campaign run. Repositories and the metrics exporter are
// optional; nil skips recording.
type Runner struct {
	Model      *model.Model
	ModelPath  string
	Medium     *medium.Config
	Candidates regime.Candidates
	Targets    []string

	Workers           int
	FractionOfOptimum float64
	ATPMReaction      string
	// Fit switches ATPM to calibrated mode when non-nil.
	Fit *domain.CalibrationFit

	Campaigns ports.CampaignRepository
	Results   ports.ConditionResultRepository
	FVA       ports.FVARepository
	Metrics   ports.MetricsExporter

	// OutDir receives fva_parts/, regime_labels.csv, failed_samples.csv.
	OutDir string
}

// Output collects everything a campaign produced.
type Output struct {
	Campaign *domain.Campaign
	Results  []*domain.ConditionResult
	FVARows  []domain.FVARow
	Failures []domain.Failure
}

type job struct {
	index int
	cond  *domain.Condition
}

type outcome struct {
	index   int
	result  *domain.ConditionResult
	fvaRows []domain.FVARow
	failure *domain.Failure
	dur     time.Duration
}

// Run draws the design, simulates every condition, writes artifacts, and
// records results through the configured ports.
func (r *Runner) Run(ctx context.Context, name string, samples int, seed int64) (*Output, error) {
	logger := ctxlog.FromContext(ctx)
	if err := r.validate(); err != nil {
		return nil, err
	}

	design, err := sample.LatinHypercube(samples, sample.CampaignSpace(), seed)
	if err != nil {
		return nil, err
	}
	conds := r.conditions(design)

	mode := ATPMModeSampled
	if r.Fit != nil {
		mode = ATPMModeCalibrated
	}
	camp := &domain.Campaign{
		ID:                uuid.NewString(),
		Name:              name,
		ModelPath:         r.ModelPath,
		Samples:           samples,
		Seed:              seed,
		FractionOfOptimum: r.FractionOfOptimum,
		ATPMMode:          mode,
		StartedAt:         time.Now().UTC(),
	}
	if r.Campaigns != nil {
		if err := r.Campaigns.Create(ctx, camp); err != nil {
			return nil, fmt.Errorf("recording campaign: %w", err)
		}
	}
	logger.Info("campaign started", "campaign", camp.ID, "samples", samples, "workers", r.Workers, "atpm_mode", mode)

	jobs := make(chan job)
	outcomes := make(chan outcome, len(conds))
	var wg sync.WaitGroup
	for w := 0; w < r.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes <- r.simulate(ctx, camp.ID, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, c := range conds {
			select {
			case jobs <- job{index: i, cond: c}:
			case <-ctx.Done():
				return
			}
		}
	}()
	wg.Wait()
	close(outcomes)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collected := make([]outcome, 0, len(conds))
	for o := range outcomes {
		collected = append(collected, o)
	}
	sort.Slice(collected, func(a, b int) bool { return collected[a].index < collected[b].index })

	out := &Output{Campaign: camp}
	for _, o := range collected {
		if o.failure != nil {
			out.Failures = append(out.Failures, *o.failure)
		}
		if o.result != nil {
			out.Results = append(out.Results, o.result)
		}
		out.FVARows = append(out.FVARows, o.fvaRows...)
		if r.Metrics != nil {
			status := "failed"
			regimeLabel := ""
			if o.result != nil {
				status = o.result.Status
				regimeLabel = o.result.PrimaryRegime
			}
			m := &ports.ConditionMetrics{
				CampaignID:    camp.ID,
				ConditionID:   conds[o.index].ID,
				Status:        status,
				PrimaryRegime: regimeLabel,
				SolveDuration: o.dur,
			}
			if err := r.Metrics.ExportConditionMetrics(ctx, m); err != nil {
				logger.Warn("metrics export failed", "condition", conds[o.index].ID, "error", err)
			}
		}
	}

	if r.OutDir != "" {
		if err := writeArtifacts(r.OutDir, conds, out); err != nil {
			return nil, err
		}
	}
	if r.Results != nil {
		if err := r.Results.CreateBatch(ctx, out.Results); err != nil {
			return nil, fmt.Errorf("recording condition results: %w", err)
		}
	}
	if r.FVA != nil {
		if err := r.FVA.CreateBatch(ctx, camp.ID, out.FVARows); err != nil {
			return nil, fmt.Errorf("recording fva rows: %w", err)
		}
	}

	ended := time.Now().UTC()
	camp.EndedAt = &ended
	if r.Campaigns != nil {
		if err := r.Campaigns.MarkEnded(ctx, camp.ID, ended); err != nil {
			return nil, fmt.Errorf("closing campaign: %w", err)
		}
	}
	logger.Info("campaign done",
		"campaign", camp.ID,
		"optimal", len(out.Results),
		"failed", len(out.Failures),
		"elapsed", ended.Sub(camp.StartedAt).String())
	return out, nil
}

func (r *Runner) validate() error {
	if r.Model == nil {
		return fmt.Errorf("campaign: model is required")
	}
	if r.Medium == nil {
		return fmt.Errorf("campaign: medium config is required")
	}
	if len(r.Targets) == 0 {
		return fmt.Errorf("campaign: target reaction list is empty")
	}
	if r.Workers <= 0 {
		r.Workers = 1
	}
	if r.FractionOfOptimum <= 0 || r.FractionOfOptimum > 1 {
		return fmt.Errorf("campaign: fraction of optimum must be in (0,1], got %g", r.FractionOfOptimum)
	}
	if r.ATPMReaction == "" {
		r.ATPMReaction = DefaultATPMReaction
	}
	if !r.Model.HasReaction(r.ATPMReaction) {
		return fmt.Errorf("campaign: maintenance reaction not in model: %s", r.ATPMReaction)
	}
	return nil
}

// conditions turns the design matrix into sampled conditions with stable
// ids.
func (r *Runner) conditions(design [][]float64) []*domain.Condition {
	dims := sample.CampaignSpace()
	out := make([]*domain.Condition, len(design))
	for i, row := range design {
		c := &domain.Condition{
			ID:      fmt.Sprintf("c%05d", i),
			SetName: "campaign",
		}
		for d, dim := range dims {
			v := row[d]
			switch dim.Name {
			case "acetate_mM":
				c.AcetateMM = &v
			case "o2_uptake":
				c.O2Uptake = &v
			case "nh4_uptake":
				c.NH4Uptake = &v
			case "atpm_fixed":
				c.ATPMFixed = &v
			}
		}
		out[i] = c
	}
	return out
}

func (r *Runner) simulate(ctx context.Context, campaignID string, j job) outcome {
	start := time.Now()
	o := outcome{index: j.index}
	cond := j.cond

	fail := func(errType string, err error) outcome {
		o.failure = &domain.Failure{
			ConditionID:  cond.ID,
			ErrorType:    errType,
			ErrorMessage: err.Error(),
		}
		o.dur = time.Since(start)
		return o
	}

	work := r.Model.Clone()
	if _, err := medium.Apply(ctx, work, cond, r.Medium); err != nil {
		return fail("medium", err)
	}

	if v, ok := cond.Float("o2_uptake"); ok {
		if rid, found := r.Candidates.Resolve(work, "oxygen"); found {
			if err := medium.SetUptakeCap(work, rid, v); err != nil {
				return fail("medium", err)
			}
		}
	}
	if v, ok := cond.Float("nh4_uptake"); ok {
		if rid, found := r.Candidates.Resolve(work, "ammonium"); found {
			if err := medium.SetUptakeCap(work, rid, v); err != nil {
				return fail("medium", err)
			}
		}
	}

	atpm, _ := cond.Float("atpm_fixed")
	if r.Fit != nil {
		ac, _ := cond.Float("acetate_mM")
		atpm = r.Fit.Eval(ac)
		cond.ATPMFixed = &atpm
	}
	if err := medium.FixFlux(work, r.ATPMReaction, atpm); err != nil {
		return fail("medium", err)
	}

	prob := fba.NewProblem(work)
	sol, err := prob.Optimize()
	if err != nil {
		return fail("solver", err)
	}
	if sol.Status != fba.StatusOptimal {
		return fail(string(sol.Status), fmt.Errorf("FBA status %s", sol.Status))
	}

	ranges, err := prob.FluxVariability(r.Targets, r.FractionOfOptimum)
	if err != nil {
		return fail("fva", err)
	}
	for _, rg := range ranges {
		o.fvaRows = append(o.fvaRows, domain.FVARow{
			ConditionID:    cond.ID,
			ObjectiveValue: sol.Objective,
			ReactionID:     rg.ReactionID,
			Min:            rg.Min,
			Max:            rg.Max,
		})
	}

	sats, err := regime.Evaluate(work, sol, r.Candidates)
	if err != nil {
		return fail("regime", err)
	}

	ac, _ := cond.Float("acetate_mM")
	o2, _ := cond.Float("o2_uptake")
	nh4, _ := cond.Float("nh4_uptake")
	o.result = &domain.ConditionResult{
		CampaignID:     campaignID,
		ConditionID:    cond.ID,
		ObjectiveValue: sol.Objective,
		Status:         string(sol.Status),
		PrimaryRegime:  regime.PrimaryLabel(sats),
		AcetateMM:      ac,
		O2Uptake:       o2,
		NH4Uptake:      nh4,
		ATPMFixed:      atpm,
		Saturations:    sats,
	}
	o.dur = time.Since(start)
	return o
}

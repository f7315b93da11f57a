// Package calibrate fits the ATP-maintenance (ATPM) flux against measured
// OD600 anchors: grid-scan growth per anchor, pick the best ATPM per anchor,
// then fit a linear acetate -> ATPM law.
package calibrate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/mcrovella/fluxtwin/internal/ctxlog"
	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/fba"
	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
)

// Modes for picking the best ATPM per anchor.
const (
	ModeNorm = "norm"
	ModeRank = "rank"
)

// maxRankAnchors caps the brute-force rank search (grid^anchors combos).
const maxRankAnchors = 4

// Default ATPM clip range for the fitted law.
const (
	DefaultClipMin = 0.0
	DefaultClipMax = 200.0
)

// ScanRow is one (anchor, ATPM) growth evaluation.
type ScanRow struct {
	Condition  string
	AcetateMM  float64
	MeasuredOD float64
	ATPM       float64
	Growth     float64
	Status     string
}

// Best is the chosen ATPM for one anchor.
type Best struct {
	Condition  string
	AcetateMM  float64
	MeasuredOD float64
	ATPM       float64
	Growth     float64
}

// Grid builds an inclusive ATPM grid from lo to hi in step increments.
func Grid(lo, hi, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("calibrate: grid step must be positive, got %g", step)
	}
	if hi < lo {
		return nil, fmt.Errorf("calibrate: grid hi %g < lo %g", hi, lo)
	}
	var out []float64
	for v := lo; v <= hi+step/1e9; v += step {
		out = append(out, v)
	}
	return out, nil
}

// Scan evaluates FBA growth for every anchor across the ATPM grid. Anchors
// must carry acetate_mM and measured_OD. Infeasible solves record zero
// growth with the solver status.
func Scan(ctx context.Context, m *model.Model, cfg *medium.Config, anchors []*domain.Condition, atpmRxn string, grid []float64) ([]ScanRow, error) {
	logger := ctxlog.FromContext(ctx)
	if len(anchors) == 0 {
		return nil, fmt.Errorf("calibrate: no anchor conditions")
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("calibrate: empty ATPM grid")
	}
	if !m.HasReaction(atpmRxn) {
		return nil, fmt.Errorf("calibrate: maintenance reaction not in model: %s", atpmRxn)
	}

	var rows []ScanRow
	for _, cond := range anchors {
		ac, ok := cond.Float("acetate_mM")
		if !ok {
			return nil, fmt.Errorf("calibrate: anchor %s has no acetate_mM", cond.ID)
		}
		od, ok := cond.Float("measured_OD")
		if !ok {
			return nil, fmt.Errorf("calibrate: anchor %s has no measured_OD", cond.ID)
		}

		work := m.Clone()
		if _, err := medium.Apply(ctx, work, cond, cfg); err != nil {
			return nil, fmt.Errorf("calibrate: applying anchor %s: %w", cond.ID, err)
		}
		for _, atpm := range grid {
			if err := medium.FixFlux(work, atpmRxn, atpm); err != nil {
				return nil, err
			}
			sol, err := fba.NewProblem(work).Optimize()
			if err != nil {
				return nil, fmt.Errorf("calibrate: anchor %s atpm %g: %w", cond.ID, atpm, err)
			}
			growth := 0.0
			if sol.Status == fba.StatusOptimal {
				growth = sol.Objective
			}
			rows = append(rows, ScanRow{
				Condition:  cond.ID,
				AcetateMM:  ac,
				MeasuredOD: od,
				ATPM:       atpm,
				Growth:     growth,
				Status:     string(sol.Status),
			})
		}
		logger.Info("anchor scanned", "condition", cond.ID, "grid", len(grid))
	}
	return rows, nil
}

// Pick selects the best ATPM per anchor using the given mode.
func Pick(rows []ScanRow, mode string) ([]Best, error) {
	switch mode {
	case ModeNorm:
		return pickNorm(rows)
	case ModeRank:
		return pickRank(rows)
	default:
		return nil, fmt.Errorf("calibrate: unknown mode %q (want %s or %s)", mode, ModeNorm, ModeRank)
	}
}

type anchorScan struct {
	condition  string
	acetateMM  float64
	measuredOD float64
	atpm       []float64
	growth     []float64
}

func groupByAnchor(rows []ScanRow) []anchorScan {
	var order []string
	byCond := make(map[string]*anchorScan)
	for _, r := range rows {
		s, ok := byCond[r.Condition]
		if !ok {
			s = &anchorScan{condition: r.Condition, acetateMM: r.AcetateMM, measuredOD: r.MeasuredOD}
			byCond[r.Condition] = s
			order = append(order, r.Condition)
		}
		s.atpm = append(s.atpm, r.ATPM)
		s.growth = append(s.growth, r.Growth)
	}
	out := make([]anchorScan, len(order))
	for i, c := range order {
		out[i] = *byCond[c]
	}
	return out
}

// pickNorm matches normalized growth against normalized OD: for each grid
// column the growth values are normalized across anchors, each anchor's OD is
// normalized against the max OD, and the anchor takes the grid point whose
// normalized growth is closest to its normalized OD.
func pickNorm(rows []ScanRow) ([]Best, error) {
	scans := groupByAnchor(rows)
	if len(scans) == 0 {
		return nil, fmt.Errorf("calibrate: empty scan")
	}
	nGrid := len(scans[0].atpm)
	for _, s := range scans {
		if len(s.atpm) != nGrid {
			return nil, fmt.Errorf("calibrate: anchor %s scanned %d grid points, want %d", s.condition, len(s.atpm), nGrid)
		}
	}

	maxOD := 0.0
	for _, s := range scans {
		if s.measuredOD > maxOD {
			maxOD = s.measuredOD
		}
	}
	if maxOD <= 0 {
		return nil, fmt.Errorf("calibrate: all measured OD values are non-positive")
	}

	// Per grid column, max growth across anchors.
	colMax := make([]float64, nGrid)
	for j := 0; j < nGrid; j++ {
		for _, s := range scans {
			if s.growth[j] > colMax[j] {
				colMax[j] = s.growth[j]
			}
		}
	}

	out := make([]Best, 0, len(scans))
	for _, s := range scans {
		target := s.measuredOD / maxOD
		bestJ, bestErr := -1, math.Inf(1)
		for j := 0; j < nGrid; j++ {
			if colMax[j] <= 0 {
				continue
			}
			e := math.Abs(s.growth[j]/colMax[j] - target)
			if e < bestErr {
				bestErr = e
				bestJ = j
			}
		}
		if bestJ < 0 {
			return nil, fmt.Errorf("calibrate: anchor %s has zero growth across the whole grid", s.condition)
		}
		out = append(out, Best{
			Condition:  s.condition,
			AcetateMM:  s.acetateMM,
			MeasuredOD: s.measuredOD,
			ATPM:       s.atpm[bestJ],
			Growth:     s.growth[bestJ],
		})
	}
	return out, nil
}

// pickRank brute-forces one grid point per anchor, maximizing the number of
// anchor pairs whose growth order agrees with their OD order. Ties prefer the
// combination with the larger total ATPM (more maintenance burden).
func pickRank(rows []ScanRow) ([]Best, error) {
	scans := groupByAnchor(rows)
	if len(scans) == 0 {
		return nil, fmt.Errorf("calibrate: empty scan")
	}
	if len(scans) > maxRankAnchors {
		return nil, fmt.Errorf("calibrate: rank mode supports at most %d anchors, got %d", maxRankAnchors, len(scans))
	}

	idx := make([]int, len(scans))
	best := make([]int, len(scans))
	bestScore, bestATPM := -1, math.Inf(-1)

	var walk func(d int)
	walk = func(d int) {
		if d == len(scans) {
			score := 0
			for i := 0; i < len(scans); i++ {
				for j := i + 1; j < len(scans); j++ {
					dOD := scans[i].measuredOD - scans[j].measuredOD
					dG := scans[i].growth[idx[i]] - scans[j].growth[idx[j]]
					if dOD*dG > 0 || (dOD == 0 && dG == 0) {
						score++
					}
				}
			}
			total := 0.0
			for i, s := range scans {
				total += s.atpm[idx[i]]
			}
			if score > bestScore || (score == bestScore && total > bestATPM) {
				bestScore = score
				bestATPM = total
				copy(best, idx)
			}
			return
		}
		for k := range scans[d].atpm {
			idx[d] = k
			walk(d + 1)
		}
	}
	walk(0)

	out := make([]Best, 0, len(scans))
	for i, s := range scans {
		out = append(out, Best{
			Condition:  s.condition,
			AcetateMM:  s.acetateMM,
			MeasuredOD: s.measuredOD,
			ATPM:       s.atpm[best[i]],
			Growth:     s.growth[best[i]],
		})
	}
	return out, nil
}

// Fit regresses best-ATPM on acetate concentration. With fewer than two
// distinct acetate values the slope is zero and the intercept is the mean.
func Fit(best []Best, mode string) (*domain.CalibrationFit, error) {
	if len(best) == 0 {
		return nil, fmt.Errorf("calibrate: no anchors to fit")
	}

	xs := make([]float64, len(best))
	ys := make([]float64, len(best))
	anchors := make([]string, len(best))
	for i, b := range best {
		xs[i] = b.AcetateMM
		ys[i] = b.ATPM
		anchors[i] = b.Condition
	}

	distinct := make(map[float64]bool)
	for _, x := range xs {
		distinct[x] = true
	}

	var a, bSlope float64
	if len(distinct) < 2 {
		bSlope = 0
		a = stat.Mean(ys, nil)
	} else {
		a, bSlope = stat.LinearRegression(xs, ys, nil, false)
	}

	return &domain.CalibrationFit{
		ID:          uuid.NewString(),
		FitType:     "atpm_linear",
		Mode:        mode,
		A:           a,
		B:           bSlope,
		ClipMin:     DefaultClipMin,
		ClipMax:     DefaultClipMax,
		AnchorsUsed: anchors,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Package medium translates experimental growth conditions into exchange
// flux bounds on a metabolic model.
package medium

import (
	"context"
	"fmt"

	"github.com/mcrovella/fluxtwin/internal/ctxlog"
	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/model"
)

// Config maps nutrients to exchange reactions and describes how condition
// concentrations scale into uptake caps.
type Config struct {
	// Exchanges: nutrient name -> exchange reaction id. Must include
	// "acetate" and "ammonium".
	Exchanges map[string]string `yaml:"exchanges" json:"exchanges"`
	// Scaling factors from concentration to maximum uptake flux.
	Scaling Scaling `yaml:"scaling" json:"scaling"`
	// BaseBounds are applied to every condition before scaling.
	BaseBounds map[string]Bounds `yaml:"base_bounds" json:"base_bounds"`
	// YeastExtract controls the vitamin/cofactor exchanges opened when
	// yeast extract is present.
	YeastExtract YeastExtract `yaml:"yeast_extract" json:"yeast_extract"`
}

// Scaling holds linear concentration-to-uptake factors.
type Scaling struct {
	KAc  float64 `yaml:"k_ac" json:"k_ac"`
	KNH4 float64 `yaml:"k_nh4" json:"k_nh4"`
}

// Bounds is an optional lb/ub pair; nil leaves the model value untouched.
type Bounds struct {
	LB *float64 `yaml:"lb" json:"lb"`
	UB *float64 `yaml:"ub" json:"ub"`
}

// YeastExtract configures the yeast-extract toggle.
type YeastExtract struct {
	EnabledIfGLGreaterThan float64  `yaml:"enabled_if_gL_gt" json:"enabled_if_gL_gt"`
	OpenUptakeLB           float64  `yaml:"open_uptake_lb" json:"open_uptake_lb"`
	OpenExchanges          []string `yaml:"open_exchanges_when_enabled" json:"open_exchanges_when_enabled"`
}

// Validate checks the required nutrient mappings.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("medium config: exchanges must be a non-empty mapping")
	}
	if c.Exchanges["acetate"] == "" || c.Exchanges["ammonium"] == "" {
		return fmt.Errorf("medium config: exchanges must include keys: acetate, ammonium")
	}
	return nil
}

// BoundChange records one bound update for traceability.
type BoundChange struct {
	ReactionID string
	OldLB      float64
	OldUB      float64
	NewLB      float64
	NewUB      float64
}

// ApplyResult records what Apply changed on the model.
type ApplyResult struct {
	ConditionID  string
	PH0          *float64
	YeastEnabled bool
	Changes      []BoundChange
}

// Apply updates the model bounds for one condition. pH0 is carried as
// metadata only; no constraint uses it yet.
func Apply(ctx context.Context, m *model.Model, cond *domain.Condition, cfg *Config) (*ApplyResult, error) {
	logger := ctxlog.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &ApplyResult{ConditionID: cond.ID, PH0: cond.PH0}

	for rid, b := range cfg.BaseBounds {
		if !m.HasReaction(rid) {
			logger.Warn("base bound skipped, reaction not in model", "reaction", rid)
			continue
		}
		if err := setBounds(m, rid, b.LB, b.UB, &res.Changes); err != nil {
			return nil, err
		}
	}

	if v, ok := cond.Float("acetate_mM"); ok {
		if err := setUptakeCap(m, cfg.Exchanges["acetate"], maxf(0, cfg.Scaling.KAc*v), &res.Changes); err != nil {
			return nil, err
		}
	}
	if v, ok := cond.Float("nh4cl_gL"); ok {
		if err := setUptakeCap(m, cfg.Exchanges["ammonium"], maxf(0, cfg.Scaling.KNH4*v), &res.Changes); err != nil {
			return nil, err
		}
	}

	ye, hasYE := cond.Float("yeast_extract_gL")
	res.YeastEnabled = hasYE && ye > cfg.YeastExtract.EnabledIfGLGreaterThan
	if res.YeastEnabled {
		lb := cfg.YeastExtract.OpenUptakeLB
		if lb == 0 {
			lb = -1.0
		}
		for _, rid := range cfg.YeastExtract.OpenExchanges {
			if !m.HasReaction(rid) {
				logger.Warn("yeast-extract exchange skipped, reaction not in model", "reaction", rid)
				continue
			}
			if err := setBounds(m, rid, &lb, nil, &res.Changes); err != nil {
				return nil, err
			}
		}
	}

	if cond.PH0 != nil {
		logger.Debug("condition pH0 recorded as metadata only", "pH0", *cond.PH0)
	}
	return res, nil
}

// SetUptakeCap caps an exchange reaction's uptake using the COBRA sign
// convention: uptake is negative flux, so lb = -uptakeMax. Negative upper
// bounds are clamped to zero so the pair stays consistent.
func SetUptakeCap(m *model.Model, rid string, uptakeMax float64) error {
	var changes []BoundChange
	return setUptakeCap(m, rid, maxf(0, uptakeMax), &changes)
}

// FixFlux pins a reaction to a single flux value (lb = ub = v).
func FixFlux(m *model.Model, rid string, v float64) error {
	r := m.Reaction(rid)
	if r == nil {
		return fmt.Errorf("reaction not found in model: %s", rid)
	}
	return r.SetBounds(v, v)
}

func setUptakeCap(m *model.Model, rid string, uptakeMax float64, changes *[]BoundChange) error {
	r := m.Reaction(rid)
	if r == nil {
		return fmt.Errorf("reaction not found in model: %s", rid)
	}
	oldLB, oldUB := r.LowerBound, r.UpperBound
	newLB := -uptakeMax
	newUB := oldUB
	if newUB < 0 {
		newUB = 0
	}
	if newLB > newUB {
		newUB = 0
	}
	if newLB == oldLB && newUB == oldUB {
		return nil
	}
	if err := r.SetBounds(newLB, newUB); err != nil {
		return err
	}
	*changes = append(*changes, BoundChange{ReactionID: rid, OldLB: oldLB, OldUB: oldUB, NewLB: newLB, NewUB: newUB})
	return nil
}

func setBounds(m *model.Model, rid string, lb, ub *float64, changes *[]BoundChange) error {
	r := m.Reaction(rid)
	if r == nil {
		return fmt.Errorf("reaction not found in model: %s", rid)
	}
	oldLB, oldUB := r.LowerBound, r.UpperBound
	newLB, newUB := oldLB, oldUB
	if lb != nil {
		newLB = *lb
	}
	if ub != nil {
		newUB = *ub
	}
	if newLB == oldLB && newUB == oldUB {
		return nil
	}
	if err := r.SetBounds(newLB, newUB); err != nil {
		return err
	}
	*changes = append(*changes, BoundChange{ReactionID: rid, OldLB: oldLB, OldUB: oldUB, NewLB: newLB, NewUB: newUB})
	return nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Package regime classifies growth-limiting regimes from FBA solutions:
// which nutrient exchange is saturated at a bound when growth is maximal.
package regime

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/fba"
	"github.com/mcrovella/fluxtwin/internal/model"
)

const (
	// Eps is the saturation tolerance on |flux - bound|.
	Eps = 1e-6
	// InftyBound marks a bound as effectively unconstrained.
	InftyBound = 999.0
)

// Regime labels in priority order.
const (
	LabelAcetateLimited   = "Ac_limited"
	LabelNitrogenLimited  = "N_limited"
	LabelPhosphateLimited = "Pi_limited"
	LabelOxygenLimited    = "O2_limited"
	LabelUnconstrained    = "Unconstrained"
)

// Nutrients evaluated for saturation, in label priority order.
var Nutrients = []string{"acetate", "ammonium", "phosphate", "oxygen"}

// Candidates maps each nutrient to an ordered list of candidate exchange
// reaction ids; the first id present in the model is used.
type Candidates map[string][]string

// LoadCandidates reads the nutrient -> candidate reaction ids YAML.
func LoadCandidates(path string) (Candidates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regime config: %w", err)
	}
	var c Candidates
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing regime config %s: %w", path, err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("regime config %s is empty", path)
	}
	return c, nil
}

// Resolve returns the first candidate reaction id present in the model.
func (c Candidates) Resolve(m *model.Model, nutrient string) (string, bool) {
	for _, rid := range c[nutrient] {
		if m.HasReaction(rid) {
			return rid, true
		}
	}
	return "", false
}

// Saturation inspects one reaction's flux against its bounds.
// Sides: "open" (both bounds beyond InftyBound), "fixed" (lb==ub hit),
// "lb"/"ub" (bound hit), "none".
func Saturation(m *model.Model, sol *fba.Solution, rid string) (domain.NutrientSaturation, error) {
	r := m.Reaction(rid)
	if r == nil {
		return domain.NutrientSaturation{}, fmt.Errorf("reaction not in model: %s", rid)
	}
	flux, ok := sol.Flux(rid)
	if !ok {
		flux = math.NaN()
	}
	out := domain.NutrientSaturation{
		ReactionID: rid,
		Flux:       flux,
		LowerBound: r.LowerBound,
		UpperBound: r.UpperBound,
	}

	if r.LowerBound <= -InftyBound && r.UpperBound >= InftyBound {
		out.SatSide = "open"
		return out, nil
	}
	out.IsConstrained = true

	switch {
	case math.Abs(r.LowerBound-r.UpperBound) <= Eps && math.Abs(flux-r.LowerBound) <= Eps:
		out.Saturated = true
		out.SatSide = "fixed"
	case math.Abs(flux-r.LowerBound) <= Eps:
		out.Saturated = true
		out.SatSide = "lb"
	case math.Abs(flux-r.UpperBound) <= Eps:
		out.Saturated = true
		out.SatSide = "ub"
	default:
		out.SatSide = "none"
	}
	return out, nil
}

// Evaluate computes saturation records for every nutrient with a resolvable
// candidate. Missing nutrients produce a "missing" record so downstream
// tables keep a stable shape.
func Evaluate(m *model.Model, sol *fba.Solution, cand Candidates) ([]domain.NutrientSaturation, error) {
	out := make([]domain.NutrientSaturation, 0, len(Nutrients))
	for _, nutrient := range Nutrients {
		rid, ok := cand.Resolve(m, nutrient)
		if !ok {
			out = append(out, domain.NutrientSaturation{
				Nutrient: nutrient,
				Flux:     math.NaN(),
				SatSide:  "missing",
			})
			continue
		}
		sat, err := Saturation(m, sol, rid)
		if err != nil {
			return nil, err
		}
		sat.Nutrient = nutrient
		out = append(out, sat)
	}
	return out, nil
}

// PrimaryLabel picks the growth-limiting regime with the fixed priority
// acetate > ammonium > phosphate > oxygen.
func PrimaryLabel(sats []domain.NutrientSaturation) string {
	byNutrient := make(map[string]bool, len(sats))
	for _, s := range sats {
		byNutrient[s.Nutrient] = s.Saturated
	}
	switch {
	case byNutrient["acetate"]:
		return LabelAcetateLimited
	case byNutrient["ammonium"]:
		return LabelNitrogenLimited
	case byNutrient["phosphate"]:
		return LabelPhosphateLimited
	case byNutrient["oxygen"]:
		return LabelOxygenLimited
	default:
		return LabelUnconstrained
	}
}

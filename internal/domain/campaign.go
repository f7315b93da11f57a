package domain

import "time"

// Campaign is a named batch of simulated conditions with shared settings.
type Campaign struct {
	ID                string
	Name              string
	ModelPath         string
	Samples           int
	Seed              int64
	FractionOfOptimum float64
	ATPMMode          string // "sampled" | "calibrated"
	StartedAt         time.Time
	EndedAt           *time.Time
	CreatedAt         time.Time
}

// Condition is one experimental or sampled growth condition.
type Condition struct {
	ID             string
	SetName        string
	PH0            *float64
	YeastExtractGL *float64
	NH4ClGL        *float64
	AcetateMM      *float64
	Notes          string
	MeasuredOD     *float64

	// Campaign-sampled extras (absent in lab condition tables).
	O2Uptake  *float64
	NH4Uptake *float64
	ATPMFixed *float64
}

// Float returns the value of a named numeric field, mirroring the loose
// column access used by condition tables. Unknown names return (0, false).
func (c *Condition) Float(name string) (float64, bool) {
	var p *float64
	switch name {
	case "pH0":
		p = c.PH0
	case "yeast_extract_gL":
		p = c.YeastExtractGL
	case "nh4cl_gL":
		p = c.NH4ClGL
	case "acetate_mM":
		p = c.AcetateMM
	case "measured_OD":
		p = c.MeasuredOD
	case "o2_uptake":
		p = c.O2Uptake
	case "nh4_uptake":
		p = c.NH4Uptake
	case "atpm_fixed":
		p = c.ATPMFixed
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ConditionResult is one wide regime row produced for a condition.
type ConditionResult struct {
	CampaignID     string
	ConditionID    string
	ObjectiveValue float64
	Status         string
	PrimaryRegime  string
	AcetateMM      float64
	O2Uptake       float64
	NH4Uptake      float64
	ATPMFixed      float64
	Saturations    []NutrientSaturation
}

// NutrientSaturation records the saturation state of one nutrient exchange.
type NutrientSaturation struct {
	Nutrient      string
	ReactionID    string
	Flux          float64
	LowerBound    float64
	UpperBound    float64
	IsConstrained bool
	Saturated     bool
	SatSide       string // "lb" | "ub" | "fixed" | "none" | "open" | "missing"
}

// FVARow is one long-format flux variability record.
type FVARow struct {
	ConditionID    string
	ObjectiveValue float64
	ReactionID     string
	Min            float64
	Max            float64
}

// Failure records a condition that could not be simulated.
type Failure struct {
	ConditionID  string
	ErrorType    string
	ErrorMessage string
}

// CalibrationFit is a stored linear ATPM calibration:
// ATPM_eff = clip(A + B*acetate_mM, ClipMin, ClipMax).
type CalibrationFit struct {
	ID          string
	FitType     string
	Mode        string // "norm" | "rank"
	A           float64
	B           float64
	ClipMin     float64
	ClipMax     float64
	AnchorsUsed []string
	CreatedAt   time.Time
}

// Eval returns the effective ATPM for an acetate concentration.
func (f *CalibrationFit) Eval(acetateMM float64) float64 {
	v := f.A + f.B*acetateMM
	if v < f.ClipMin {
		v = f.ClipMin
	}
	if v > f.ClipMax {
		v = f.ClipMax
	}
	return v
}

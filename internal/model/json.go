package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// cobraJSON mirrors the cobrapy JSON export schema.
type cobraJSON struct {
	ID          string `json:"id"`
	Metabolites []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Compartment string `json:"compartment"`
		Formula     string `json:"formula"`
		Charge      int    `json:"charge"`
	} `json:"metabolites"`
	Reactions []struct {
		ID                   string             `json:"id"`
		Name                 string             `json:"name"`
		Subsystem            string             `json:"subsystem"`
		Metabolites          map[string]float64 `json:"metabolites"`
		LowerBound           *float64           `json:"lower_bound"`
		UpperBound           *float64           `json:"upper_bound"`
		GeneReactionRule     string             `json:"gene_reaction_rule"`
		ObjectiveCoefficient float64            `json:"objective_coefficient"`
	} `json:"reactions"`
}

// LoadJSON reads a COBRA-JSON model file.
func LoadJSON(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	var doc cobraJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing model JSON %s: %w", path, err)
	}
	if len(doc.Reactions) == 0 {
		return nil, fmt.Errorf("model %s has no reactions", path)
	}

	mets := make([]*Metabolite, 0, len(doc.Metabolites))
	for _, jm := range doc.Metabolites {
		mets = append(mets, &Metabolite{
			ID:          jm.ID,
			Name:        jm.Name,
			Compartment: jm.Compartment,
			Formula:     jm.Formula,
			Charge:      jm.Charge,
		})
	}

	rxns := make([]*Reaction, 0, len(doc.Reactions))
	for _, jr := range doc.Reactions {
		lb, ub := -DefaultBound, DefaultBound
		if jr.LowerBound != nil {
			lb = *jr.LowerBound
		}
		if jr.UpperBound != nil {
			ub = *jr.UpperBound
		}
		if lb > ub {
			return nil, fmt.Errorf("reaction %s: lb=%g > ub=%g", jr.ID, lb, ub)
		}
		rxns = append(rxns, &Reaction{
			ID:                   jr.ID,
			Name:                 jr.Name,
			Subsystem:            jr.Subsystem,
			LowerBound:           lb,
			UpperBound:           ub,
			Metabolites:          jr.Metabolites,
			GeneRule:             jr.GeneReactionRule,
			ObjectiveCoefficient: jr.ObjectiveCoefficient,
		})
	}

	return New(doc.ID, mets, rxns)
}

// Load reads a model, dispatching on file extension: .json for COBRA-JSON,
// .xml/.sbml for SBML FBC.
func Load(path string) (*Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".xml", ".sbml":
		return LoadSBML(path)
	default:
		return nil, fmt.Errorf("unsupported model format: %s (expected .json, .xml or .sbml)", path)
	}
}

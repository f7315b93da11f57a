package model

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

const fbcNS = "http://www.sbml.org/sbml/level3/version1/fbc/version2"

// The structures below cover the SBML Level 3 FBC v2 subset that cobrapy
// emits for genome-scale models. Kinetic laws, rules and annotations are
// ignored.
type sbmlDoc struct {
	XMLName xml.Name  `xml:"sbml"`
	Model   sbmlModel `xml:"model"`
}

type sbmlModel struct {
	ID         string          `xml:"id,attr"`
	Species    []sbmlSpecies   `xml:"listOfSpecies>species"`
	Parameters []sbmlParameter `xml:"listOfParameters>parameter"`
	Reactions  []sbmlReaction  `xml:"listOfReactions>reaction"`
	Objectives sbmlObjectives  `xml:"listOfObjectives"`
}

type sbmlSpecies struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"name,attr"`
	Compartment string `xml:"compartment,attr"`
	Charge      int    `xml:"http://www.sbml.org/sbml/level3/version1/fbc/version2 charge,attr"`
	Formula     string `xml:"http://www.sbml.org/sbml/level3/version1/fbc/version2 chemicalFormula,attr"`
	Boundary    bool   `xml:"boundaryCondition,attr"`
}

type sbmlParameter struct {
	ID    string  `xml:"id,attr"`
	Value float64 `xml:"value,attr"`
}

type sbmlReaction struct {
	ID         string        `xml:"id,attr"`
	Name       string        `xml:"name,attr"`
	Reversible *bool         `xml:"reversible,attr"`
	LowerRef   string        `xml:"http://www.sbml.org/sbml/level3/version1/fbc/version2 lowerFluxBound,attr"`
	UpperRef   string        `xml:"http://www.sbml.org/sbml/level3/version1/fbc/version2 upperFluxBound,attr"`
	Reactants  []sbmlSpecRef `xml:"listOfReactants>speciesReference"`
	Products   []sbmlSpecRef `xml:"listOfProducts>speciesReference"`
}

type sbmlSpecRef struct {
	Species       string   `xml:"species,attr"`
	Stoichiometry *float64 `xml:"stoichiometry,attr"`
}

type sbmlObjectives struct {
	Active     string          `xml:"activeObjective,attr"`
	Objectives []sbmlObjective `xml:"objective"`
}

type sbmlObjective struct {
	ID    string              `xml:"id,attr"`
	Type  string              `xml:"type,attr"`
	Flux  []sbmlFluxObjective `xml:"listOfFluxObjectives>fluxObjective"`
}

type sbmlFluxObjective struct {
	Reaction    string  `xml:"reaction,attr"`
	Coefficient float64 `xml:"coefficient,attr"`
}

// stripSBMLPrefix undoes the cobrapy id mangling (R_ / M_ / G_ prefixes).
func stripSBMLPrefix(id, prefix string) string {
	if strings.HasPrefix(id, prefix) {
		return id[len(prefix):]
	}
	return id
}

// LoadSBML reads an SBML Level 3 FBC v2 model file.
func LoadSBML(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	var doc sbmlDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing SBML %s: %w", path, err)
	}
	sm := doc.Model
	if len(sm.Reactions) == 0 {
		return nil, fmt.Errorf("SBML model %s has no reactions", path)
	}

	params := make(map[string]float64, len(sm.Parameters))
	for _, p := range sm.Parameters {
		params[p.ID] = p.Value
	}

	mets := make([]*Metabolite, 0, len(sm.Species))
	for _, sp := range sm.Species {
		if sp.Boundary {
			// boundary species are implicit sinks; they do not join the
			// steady-state constraint
			continue
		}
		mets = append(mets, &Metabolite{
			ID:          stripSBMLPrefix(sp.ID, "M_"),
			Name:        sp.Name,
			Compartment: sp.Compartment,
			Formula:     sp.Formula,
			Charge:      sp.Charge,
		})
	}
	known := make(map[string]bool, len(mets))
	for _, met := range mets {
		known[met.ID] = true
	}

	// objective coefficients, keyed by un-mangled reaction id
	objCoef := make(map[string]float64)
	for _, obj := range sm.Objectives.Objectives {
		if sm.Objectives.Active != "" && obj.ID != sm.Objectives.Active {
			continue
		}
		sign := 1.0
		if obj.Type == "minimize" {
			sign = -1.0
		}
		for _, fo := range obj.Flux {
			objCoef[stripSBMLPrefix(fo.Reaction, "R_")] = sign * fo.Coefficient
		}
	}

	rxns := make([]*Reaction, 0, len(sm.Reactions))
	for _, sr := range sm.Reactions {
		id := stripSBMLPrefix(sr.ID, "R_")

		lb, ub := -DefaultBound, DefaultBound
		if sr.Reversible != nil && !*sr.Reversible {
			lb = 0
		}
		if sr.LowerRef != "" {
			v, ok := params[sr.LowerRef]
			if !ok {
				return nil, fmt.Errorf("reaction %s: unknown flux bound parameter %s", id, sr.LowerRef)
			}
			lb = v
		}
		if sr.UpperRef != "" {
			v, ok := params[sr.UpperRef]
			if !ok {
				return nil, fmt.Errorf("reaction %s: unknown flux bound parameter %s", id, sr.UpperRef)
			}
			ub = v
		}

		stoich := make(map[string]float64)
		add := func(refs []sbmlSpecRef, sign float64) {
			for _, ref := range refs {
				metID := stripSBMLPrefix(ref.Species, "M_")
				if !known[metID] {
					continue // boundary species
				}
				coef := 1.0
				if ref.Stoichiometry != nil {
					coef = *ref.Stoichiometry
				}
				stoich[metID] += sign * coef
			}
		}
		add(sr.Reactants, -1)
		add(sr.Products, +1)

		rxns = append(rxns, &Reaction{
			ID:                   id,
			Name:                 sr.Name,
			LowerBound:           lb,
			UpperBound:           ub,
			Metabolites:          stoich,
			ObjectiveCoefficient: objCoef[id],
		})
	}

	return New(sm.ID, mets, rxns)
}

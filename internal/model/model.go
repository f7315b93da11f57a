// Package model holds the constraint-based metabolic model: metabolites,
// reactions with stoichiometry and flux bounds, and the biomass objective.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultBound is the conventional "unbounded" flux magnitude in COBRA models.
const DefaultBound = 1000.0

// Metabolite is one chemical species in a compartment.
type Metabolite struct {
	ID          string
	Name        string
	Compartment string
	Formula     string
	Charge      int
}

// Reaction links metabolites through stoichiometric coefficients and carries
// flux bounds. Negative coefficients consume, positive produce.
type Reaction struct {
	ID                   string
	Name                 string
	Subsystem            string
	LowerBound           float64
	UpperBound           float64
	Metabolites          map[string]float64
	GeneRule             string
	ObjectiveCoefficient float64
}

// Reversible reports whether the reaction can carry negative flux.
func (r *Reaction) Reversible() bool { return r.LowerBound < 0 }

// SetBounds updates both bounds, ordering the writes so the pair never
// passes through an lb > ub state.
func (r *Reaction) SetBounds(lb, ub float64) error {
	if lb > ub {
		return fmt.Errorf("reaction %s: invalid bounds lb=%g > ub=%g", r.ID, lb, ub)
	}
	if lb > r.UpperBound {
		r.UpperBound = ub
		r.LowerBound = lb
		return nil
	}
	r.LowerBound = lb
	r.UpperBound = ub
	return nil
}

// Model is a genome-scale metabolic model.
type Model struct {
	ID          string
	Reactions   []*Reaction
	Metabolites []*Metabolite

	rxnIndex map[string]int
	metIndex map[string]int
}

// New builds a model and its lookup indexes. Duplicate ids are errors.
func New(id string, mets []*Metabolite, rxns []*Reaction) (*Model, error) {
	m := &Model{ID: id}
	for _, met := range mets {
		if err := m.AddMetabolite(met); err != nil {
			return nil, err
		}
	}
	for _, rxn := range rxns {
		if err := m.AddReaction(rxn); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddMetabolite appends a metabolite, rejecting duplicate ids.
func (m *Model) AddMetabolite(met *Metabolite) error {
	if m.metIndex == nil {
		m.metIndex = make(map[string]int)
	}
	if _, ok := m.metIndex[met.ID]; ok {
		return fmt.Errorf("duplicate metabolite id: %s", met.ID)
	}
	m.metIndex[met.ID] = len(m.Metabolites)
	m.Metabolites = append(m.Metabolites, met)
	return nil
}

// AddReaction appends a reaction, rejecting duplicates and references to
// unknown metabolites.
func (m *Model) AddReaction(rxn *Reaction) error {
	if m.rxnIndex == nil {
		m.rxnIndex = make(map[string]int)
	}
	if _, ok := m.rxnIndex[rxn.ID]; ok {
		return fmt.Errorf("duplicate reaction id: %s", rxn.ID)
	}
	for metID := range rxn.Metabolites {
		if _, ok := m.metIndex[metID]; !ok {
			return fmt.Errorf("reaction %s references unknown metabolite: %s", rxn.ID, metID)
		}
	}
	m.rxnIndex[rxn.ID] = len(m.Reactions)
	m.Reactions = append(m.Reactions, rxn)
	return nil
}

// Reaction returns the reaction with the given id, or nil.
func (m *Model) Reaction(id string) *Reaction {
	i, ok := m.rxnIndex[id]
	if !ok {
		return nil
	}
	return m.Reactions[i]
}

// HasReaction reports whether a reaction id exists in the model.
func (m *Model) HasReaction(id string) bool {
	_, ok := m.rxnIndex[id]
	return ok
}

// Metabolite returns the metabolite with the given id, or nil.
func (m *Model) Metabolite(id string) *Metabolite {
	i, ok := m.metIndex[id]
	if !ok {
		return nil
	}
	return m.Metabolites[i]
}

// ReactionIndex returns the position of a reaction in the flux vector.
func (m *Model) ReactionIndex(id string) (int, bool) {
	i, ok := m.rxnIndex[id]
	return i, ok
}

// MetaboliteIndex returns the row of a metabolite in the stoichiometric
// matrix.
func (m *Model) MetaboliteIndex(id string) (int, bool) {
	i, ok := m.metIndex[id]
	return i, ok
}

// ObjectiveIDs returns the reaction ids with nonzero objective coefficient,
// sorted for stable output.
func (m *Model) ObjectiveIDs() []string {
	var ids []string
	for _, r := range m.Reactions {
		if r.ObjectiveCoefficient != 0 {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// SetObjective makes the given reaction the sole objective (coefficient 1).
func (m *Model) SetObjective(rxnID string) error {
	if !m.HasReaction(rxnID) {
		return fmt.Errorf("objective reaction not in model: %s", rxnID)
	}
	for _, r := range m.Reactions {
		r.ObjectiveCoefficient = 0
	}
	m.Reaction(rxnID).ObjectiveCoefficient = 1
	return nil
}

// IsExchange recognizes boundary reactions: EX_/DM_/SK_ prefixes or a
// single-metabolite stoichiometry.
func IsExchange(r *Reaction) bool {
	if strings.HasPrefix(r.ID, "EX_") || strings.HasPrefix(r.ID, "DM_") || strings.HasPrefix(r.ID, "SK_") {
		return true
	}
	return len(r.Metabolites) == 1
}

// Exchanges returns all boundary reactions in model order.
func (m *Model) Exchanges() []*Reaction {
	var out []*Reaction
	for _, r := range m.Reactions {
		if IsExchange(r) {
			out = append(out, r)
		}
	}
	return out
}

// Clone deep-copies the model so workers can mutate bounds independently.
func (m *Model) Clone() *Model {
	out := &Model{
		ID:          m.ID,
		Reactions:   make([]*Reaction, len(m.Reactions)),
		Metabolites: make([]*Metabolite, len(m.Metabolites)),
		rxnIndex:    make(map[string]int, len(m.rxnIndex)),
		metIndex:    make(map[string]int, len(m.metIndex)),
	}
	for i, met := range m.Metabolites {
		c := *met
		out.Metabolites[i] = &c
		out.metIndex[c.ID] = i
	}
	for i, rxn := range m.Reactions {
		c := *rxn
		c.Metabolites = make(map[string]float64, len(rxn.Metabolites))
		for k, v := range rxn.Metabolites {
			c.Metabolites[k] = v
		}
		out.Reactions[i] = &c
		out.rxnIndex[c.ID] = i
	}
	return out
}

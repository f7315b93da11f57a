// Package targets selects the reaction set tracked by targeted FVA:
// anchor-keyword matches, minus blocked reactions, auto-filled from a
// parsimonious-FBA flux ranking.
package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcrovella/fluxtwin/internal/ctxlog"
	"github.com/mcrovella/fluxtwin/internal/fba"
	"github.com/mcrovella/fluxtwin/internal/model"
)

// Anchor names a pathway of interest through id/name keywords.
type Anchor struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type anchorsDoc struct {
	Anchors []Anchor `yaml:"anchors"`
}

// LoadAnchors reads the anchors YAML (top-level key "anchors").
func LoadAnchors(path string) ([]Anchor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading anchors: %w", err)
	}
	var doc anchorsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing anchors %s: %w", path, err)
	}
	if len(doc.Anchors) == 0 {
		return nil, fmt.Errorf("anchors %s: top-level key 'anchors' missing or empty", path)
	}
	for i, a := range doc.Anchors {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("anchors %s: anchor #%d has empty name", path, i)
		}
		var kept []string
		for _, kw := range a.Keywords {
			if strings.TrimSpace(kw) != "" {
				kept = append(kept, strings.TrimSpace(kw))
			}
		}
		if len(kept) == 0 {
			return nil, fmt.Errorf("anchors %s: anchor %q has no usable keywords", path, a.Name)
		}
		doc.Anchors[i].Keywords = kept
	}
	return doc.Anchors, nil
}

func keywordMatch(text string, keywords []string) bool {
	t := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(t, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// AnchorMatches returns reaction ids matched by any anchor keyword against
// reaction id or name, deduplicated in model order.
func AnchorMatches(m *model.Model, anchors []Anchor) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range m.Reactions {
		for _, a := range anchors {
			if keywordMatch(r.ID, a.Keywords) || keywordMatch(r.Name, a.Keywords) {
				if !seen[r.ID] {
					seen[r.ID] = true
					out = append(out, r.ID)
				}
				break
			}
		}
	}
	return out
}

// Select builds the exact-count target list: anchor matches minus blocked
// reactions, then pFBA |flux|-ranked auto-fill. An error is returned when
// the count cannot be reached.
func Select(ctx context.Context, m *model.Model, anchors []Anchor, count int) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	if count <= 0 {
		return nil, fmt.Errorf("target count must be positive, got %d", count)
	}

	matched := AnchorMatches(m, anchors)
	logger.Info("anchor matching done", "matched", len(matched))

	prob := fba.NewProblem(m)
	blockedIDs, err := prob.BlockedReactions(0)
	if err != nil {
		return nil, fmt.Errorf("blocked-reaction scan: %w", err)
	}
	blocked := make(map[string]bool, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = true
	}
	logger.Info("blocked reactions detected", "blocked", len(blocked))

	var out []string
	seen := make(map[string]bool)
	for _, id := range matched {
		if blocked[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) >= count {
		return out[:count], nil
	}

	ranked, err := rankByParsimoniousFlux(m)
	if err != nil {
		return nil, err
	}
	for _, id := range ranked {
		if blocked[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == count {
			return out, nil
		}
	}
	return nil, fmt.Errorf(
		"could not reach target count %d (got %d); the model may have too many blocked reactions under the base medium",
		count, len(out))
}

// rankByParsimoniousFlux runs pFBA once and orders reactions by |flux|
// descending, ties broken by id for determinism.
func rankByParsimoniousFlux(m *model.Model) ([]string, error) {
	sol, err := fba.NewProblem(m).Parsimonious()
	if err != nil {
		return nil, fmt.Errorf("pFBA ranking: %w", err)
	}
	if sol.Status != fba.StatusOptimal {
		return nil, fmt.Errorf("pFBA ranking: status %s", sol.Status)
	}

	type ranked struct {
		id  string
		abs float64
	}
	rows := make([]ranked, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		flux, _ := sol.Flux(r.ID)
		rows = append(rows, ranked{id: r.ID, abs: math.Abs(flux)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].abs != rows[j].abs {
			return rows[i].abs > rows[j].abs
		}
		return rows[i].id < rows[j].id
	})

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out, nil
}

// SaveJSON writes the target list as a JSON array.
func SaveJSON(ids []string, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

// LoadJSON reads a target list saved by SaveJSON.
func LoadJSON(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("parsing targets %s: %w", path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("targets %s: empty array", path)
	}
	return ids, nil
}

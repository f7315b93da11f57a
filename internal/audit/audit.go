// Package audit checks a medium config against a model: which referenced
// exchange reactions exist, and plausible replacements for the ones that
// don't.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
)

// MaxSuggestions caps the replacement list per missing exchange.
const MaxSuggestions = 3

// synonyms expands common metabolite id stems into searchable keywords.
var synonyms = map[string][]string{
	"btn":    {"biotin"},
	"thm":    {"thiamin", "thiamine"},
	"ribflv": {"riboflavin"},
	"fol":    {"folate", "folic"},
	"nad":    {"nicotinamide", "nad"},
	"pydx":   {"pyridox"},
	"pan4p":  {"pantothen", "pan4p"},
	"ac":     {"acetate"},
	"nh4":    {"ammonium", "ammonia"},
	"pi":     {"phosphate"},
	"o2":     {"oxygen"},
}

// Entry is the audit verdict for one referenced exchange id.
type Entry struct {
	ReactionID  string
	Source      string // "exchanges" | "base_bounds" | "yeast_extract"
	Present     bool
	Suggestions []Suggestion
}

// Suggestion is one scored replacement candidate.
type Suggestion struct {
	ReactionID string
	Score      int
}

// Referenced collects every exchange reaction id a medium config names,
// deduplicated, with the config section it came from.
func Referenced(cfg *medium.Config) []Entry {
	var out []Entry
	seen := make(map[string]bool)
	add := func(rid, source string) {
		if rid == "" || seen[rid] {
			return
		}
		seen[rid] = true
		out = append(out, Entry{ReactionID: rid, Source: source})
	}

	nutrients := make([]string, 0, len(cfg.Exchanges))
	for n := range cfg.Exchanges {
		nutrients = append(nutrients, n)
	}
	sort.Strings(nutrients)
	for _, n := range nutrients {
		add(cfg.Exchanges[n], "exchanges")
	}

	base := make([]string, 0, len(cfg.BaseBounds))
	for rid := range cfg.BaseBounds {
		base = append(base, rid)
	}
	sort.Strings(base)
	for _, rid := range base {
		add(rid, "base_bounds")
	}

	for _, rid := range cfg.YeastExtract.OpenExchanges {
		add(rid, "yeast_extract")
	}
	return out
}

// Run audits every referenced exchange against the model, attaching ranked
// suggestions for the missing ones.
func Run(m *model.Model, cfg *medium.Config) []Entry {
	entries := Referenced(cfg)
	for i := range entries {
		if m.HasReaction(entries[i].ReactionID) {
			entries[i].Present = true
			continue
		}
		entries[i].Suggestions = Suggest(m, entries[i].ReactionID)
	}
	return entries
}

// Suggest scores the model's exchange reactions against keywords derived
// from a missing id and returns the top matches.
func Suggest(m *model.Model, missingID string) []Suggestion {
	keywords := keywordsFor(missingID)
	if len(keywords) == 0 {
		return nil
	}

	var scored []Suggestion
	for _, r := range m.Exchanges() {
		score := scoreReaction(m, r, keywords)
		if score > 0 {
			scored = append(scored, Suggestion{ReactionID: r.ID, Score: score})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ReactionID < scored[j].ReactionID
	})
	if len(scored) > MaxSuggestions {
		scored = scored[:MaxSuggestions]
	}
	return scored
}

// keywordsFor derives search keywords from an exchange id like EX_thm_e:
// the metabolite stem plus its synonym expansions.
func keywordsFor(rid string) []string {
	stem := strings.ToLower(rid)
	for _, prefix := range []string{"ex_", "dm_", "sk_"} {
		stem = strings.TrimPrefix(stem, prefix)
	}
	for _, suffix := range []string{"_e", "(e)", "_c", "_p"} {
		stem = strings.TrimSuffix(stem, suffix)
	}
	if stem == "" {
		return nil
	}
	out := []string{stem}
	out = append(out, synonyms[stem]...)
	return out
}

func scoreReaction(m *model.Model, r *model.Reaction, keywords []string) int {
	score := 0
	id := strings.ToLower(r.ID)
	name := strings.ToLower(r.Name)
	for _, kw := range keywords {
		if strings.Contains(id, kw) {
			score += 2
		}
		if name != "" && strings.Contains(name, kw) {
			score += 2
		}
		for mid := range r.Metabolites {
			met := m.Metabolite(mid)
			if met == nil {
				continue
			}
			if strings.Contains(strings.ToLower(met.ID), kw) || strings.Contains(strings.ToLower(met.Name), kw) {
				score++
			}
		}
	}
	return score
}

// WriteCSV stores the audit as CSV with up to MaxSuggestions columns.
func WriteCSV(entries []Entry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"reaction_id", "source", "present"}
	for i := 1; i <= MaxSuggestions; i++ {
		header = append(header, fmt.Sprintf("suggestion_%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{e.ReactionID, e.Source, fmt.Sprintf("%t", e.Present)}
		for i := 0; i < MaxSuggestions; i++ {
			if i < len(e.Suggestions) {
				rec = append(rec, e.Suggestions[i].ReactionID)
			} else {
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

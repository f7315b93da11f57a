// Package features turns long FVA result rows into per-condition feature
// matrices: per-reaction flux-range width, midpoint, and sign-change flags,
// pivoted wide and joined with condition metadata.
package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

// Feature column prefixes, one family per FVA-derived quantity.
const (
	PrefixWidth      = "width__"
	PrefixMid        = "mid__"
	PrefixSignChange = "signchange__"
)

// LongRow is one (condition, reaction) feature record.
type LongRow struct {
	ConditionID    string
	ObjectiveValue float64
	ReactionID     string
	FVAMin         float64
	FVAMax         float64
	Width          float64
	Mid            float64
	AbsWidth       float64
	SignChange     bool
}

// BuildLong derives width/mid/sign-change features from raw FVA rows.
func BuildLong(rows []domain.FVARow) []LongRow {
	out := make([]LongRow, 0, len(rows))
	for _, r := range rows {
		width := r.Max - r.Min
		out = append(out, LongRow{
			ConditionID:    r.ConditionID,
			ObjectiveValue: r.ObjectiveValue,
			ReactionID:     r.ReactionID,
			FVAMin:         r.Min,
			FVAMax:         r.Max,
			Width:          width,
			Mid:            (r.Max + r.Min) / 2,
			AbsWidth:       math.Abs(width),
			SignChange:     r.Min < 0 && r.Max > 0,
		})
	}
	return out
}

// Matrix is a dense numeric table: one row per condition, NaN for missing
// cells.
type Matrix struct {
	ConditionIDs []string
	Columns      []string
	Values       [][]float64

	rowIndex map[string]int
	colIndex map[string]int
}

// NewMatrix allocates an all-NaN matrix with the given shape.
func NewMatrix(conditionIDs, columns []string) *Matrix {
	m := &Matrix{
		ConditionIDs: conditionIDs,
		Columns:      columns,
		Values:       make([][]float64, len(conditionIDs)),
		rowIndex:     make(map[string]int, len(conditionIDs)),
		colIndex:     make(map[string]int, len(columns)),
	}
	for i, cid := range conditionIDs {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = math.NaN()
		}
		m.Values[i] = row
		m.rowIndex[cid] = i
	}
	for j, c := range columns {
		m.colIndex[c] = j
	}
	return m
}

// Set writes one cell; unknown coordinates are errors.
func (m *Matrix) Set(conditionID, column string, v float64) error {
	i, ok := m.rowIndex[conditionID]
	if !ok {
		return fmt.Errorf("unknown condition_id: %s", conditionID)
	}
	j, ok := m.colIndex[column]
	if !ok {
		return fmt.Errorf("unknown column: %s", column)
	}
	m.Values[i][j] = v
	return nil
}

// At reads one cell, NaN when coordinates are unknown.
func (m *Matrix) At(conditionID, column string) float64 {
	i, ok := m.rowIndex[conditionID]
	if !ok {
		return math.NaN()
	}
	j, ok := m.colIndex[column]
	if !ok {
		return math.NaN()
	}
	return m.Values[i][j]
}

// Column returns the values of one column in row order, or nil if absent.
func (m *Matrix) Column(name string) []float64 {
	j, ok := m.colIndex[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(m.Values))
	for i, row := range m.Values {
		out[i] = row[j]
	}
	return out
}

// HasColumn reports whether the column exists.
func (m *Matrix) HasColumn(name string) bool {
	_, ok := m.colIndex[name]
	return ok
}

// FeatureColumns returns the FVA-derived feature columns in order.
func (m *Matrix) FeatureColumns() []string {
	var out []string
	for _, c := range m.Columns {
		if IsFeatureColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsFeatureColumn reports whether a column carries FVA-derived features.
func IsFeatureColumn(name string) bool {
	return hasAnyPrefix(name, PrefixWidth, PrefixMid, PrefixSignChange)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// ReactionIDFromColumn strips the feature prefix from a column name.
func ReactionIDFromColumn(col string) string {
	for i := 0; i+1 < len(col); i++ {
		if col[i] == '_' && col[i+1] == '_' {
			return col[i+2:]
		}
	}
	return col
}

// BuildWide pivots long rows into one row per condition with
// width__/mid__/signchange__ columns. Duplicate (condition, reaction)
// pairs are errors.
func BuildWide(long []LongRow) (*Matrix, error) {
	type pair struct{ cid, rid string }
	seen := make(map[pair]bool, len(long))

	var conditionIDs, reactionIDs []string
	condSeen := make(map[string]bool)
	rxnSeen := make(map[string]bool)
	for _, r := range long {
		p := pair{r.ConditionID, r.ReactionID}
		if seen[p] {
			return nil, fmt.Errorf("duplicate row for (condition_id=%s, reaction_id=%s)", r.ConditionID, r.ReactionID)
		}
		seen[p] = true
		if !condSeen[r.ConditionID] {
			condSeen[r.ConditionID] = true
			conditionIDs = append(conditionIDs, r.ConditionID)
		}
		if !rxnSeen[r.ReactionID] {
			rxnSeen[r.ReactionID] = true
			reactionIDs = append(reactionIDs, r.ReactionID)
		}
	}
	sort.Strings(reactionIDs)

	columns := make([]string, 0, 3*len(reactionIDs))
	for _, prefix := range []string{PrefixWidth, PrefixMid, PrefixSignChange} {
		for _, rid := range reactionIDs {
			columns = append(columns, prefix+rid)
		}
	}

	m := NewMatrix(conditionIDs, columns)
	for _, r := range long {
		if err := m.Set(r.ConditionID, PrefixWidth+r.ReactionID, r.Width); err != nil {
			return nil, err
		}
		if err := m.Set(r.ConditionID, PrefixMid+r.ReactionID, r.Mid); err != nil {
			return nil, err
		}
		sc := 0.0
		if r.SignChange {
			sc = 1.0
		}
		if err := m.Set(r.ConditionID, PrefixSignChange+r.ReactionID, sc); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// JoinMeta prepends metadata columns to a feature matrix, keeping every
// condition row of the matrix (left join onto the matrix).
func JoinMeta(m *Matrix, metaColumns []string, meta func(conditionID, column string) float64) *Matrix {
	columns := append(append([]string{}, metaColumns...), m.Columns...)
	out := NewMatrix(m.ConditionIDs, columns)
	for _, cid := range m.ConditionIDs {
		for _, c := range metaColumns {
			_ = out.Set(cid, c, meta(cid, c))
		}
		for _, c := range m.Columns {
			_ = out.Set(cid, c, m.At(cid, c))
		}
	}
	return out
}

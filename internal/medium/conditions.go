package medium

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

// LoadConditions reads a condition table CSV. Required column:
// condition_id. Recognized numeric columns: pH0, yeast_extract_gL,
// nh4cl_gL, acetate_mM, measured_OD, o2_uptake, nh4_uptake, atpm_fixed.
// Empty cells leave the field nil.
func LoadConditions(path string) ([]*domain.Condition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening conditions: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading conditions %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("conditions %s: no data rows", path)
	}

	col := make(map[string]int, len(records[0]))
	for j, h := range records[0] {
		col[h] = j
	}
	if _, ok := col["condition_id"]; !ok {
		return nil, fmt.Errorf("conditions %s: missing condition_id column", path)
	}

	floatAt := func(rec []string, name string) (*float64, error) {
		j, ok := col[name]
		if !ok || rec[j] == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(rec[j], 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		return &v, nil
	}
	stringAt := func(rec []string, name string) string {
		if j, ok := col[name]; ok {
			return rec[j]
		}
		return ""
	}

	out := make([]*domain.Condition, 0, len(records)-1)
	seen := make(map[string]bool)
	for i, rec := range records[1:] {
		id := rec[col["condition_id"]]
		if id == "" {
			return nil, fmt.Errorf("conditions %s: row %d has empty condition_id", path, i+2)
		}
		if seen[id] {
			return nil, fmt.Errorf("conditions %s: duplicate condition_id %s", path, id)
		}
		seen[id] = true

		c := &domain.Condition{
			ID:      id,
			SetName: stringAt(rec, "set_name"),
			Notes:   stringAt(rec, "notes"),
		}
		fields := []struct {
			name string
			dst  **float64
		}{
			{"pH0", &c.PH0},
			{"yeast_extract_gL", &c.YeastExtractGL},
			{"nh4cl_gL", &c.NH4ClGL},
			{"acetate_mM", &c.AcetateMM},
			{"measured_OD", &c.MeasuredOD},
			{"o2_uptake", &c.O2Uptake},
			{"nh4_uptake", &c.NH4Uptake},
			{"atpm_fixed", &c.ATPMFixed},
		}
		for _, fl := range fields {
			v, err := floatAt(rec, fl.name)
			if err != nil {
				return nil, fmt.Errorf("conditions %s row %d: %w", path, i+2, err)
			}
			*fl.dst = v
		}
		out = append(out, c)
	}
	return out, nil
}

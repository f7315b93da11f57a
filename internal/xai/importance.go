package xai

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ImportanceRow is one feature's global attribution weight.
type ImportanceRow struct {
	Feature    string
	Importance float64
}

// RegressorImportance computes mean |decision-path contribution| per feature
// over the given rows.
func RegressorImportance(r *Regressor, x [][]float64) []ImportanceRow {
	sums := make([]float64, len(r.Features))
	for _, row := range x {
		_, contrib := r.Contributions(row)
		for j, v := range contrib {
			sums[j] += math.Abs(v)
		}
	}
	return toRows(r.Features, sums, len(x))
}

// ClassifierImportance computes mean per-feature attribution over the rows,
// averaged across class models.
func ClassifierImportance(c *Classifier, x [][]float64) []ImportanceRow {
	sums := make([]float64, len(c.Features))
	for _, row := range x {
		contrib := c.Contributions(row)
		for j, v := range contrib {
			sums[j] += v
		}
	}
	return toRows(c.Features, sums, len(x))
}

func toRows(features []string, sums []float64, n int) []ImportanceRow {
	out := make([]ImportanceRow, len(features))
	for j, f := range features {
		imp := 0.0
		if n > 0 {
			imp = sums[j] / float64(n)
		}
		out[j] = ImportanceRow{Feature: f, Importance: imp}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// TopK truncates a sorted importance list.
func TopK(rows []ImportanceRow, k int) []ImportanceRow {
	if k > 0 && len(rows) > k {
		return rows[:k]
	}
	return rows
}

// WriteImportanceCSV stores importances with a 'feature' column, the format
// consumed by causal discovery's feature selection.
func WriteImportanceCSV(rows []ImportanceRow, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"feature", "importance"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Feature, strconv.FormatFloat(r.Importance, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadImportanceCSV loads a file written by WriteImportanceCSV. Only the
// 'feature' column is required.
func ReadImportanceCSV(path string) ([]ImportanceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no importance rows", path)
	}
	featCol, impCol := -1, -1
	for j, h := range records[0] {
		switch h {
		case "feature":
			featCol = j
		case "importance":
			impCol = j
		}
	}
	if featCol < 0 {
		return nil, fmt.Errorf("%s: missing 'feature' column", path)
	}
	out := make([]ImportanceRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := ImportanceRow{Feature: rec[featCol]}
		if impCol >= 0 {
			row.Importance, _ = strconv.ParseFloat(rec[impCol], 64)
		}
		out = append(out, row)
	}
	return out, nil
}

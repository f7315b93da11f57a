package features

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// WriteCSV stores a matrix with a leading condition_id column. extra holds
// string-valued columns (labels, set names) keyed by column name; each must
// have one value per row. Extra columns are written after condition_id and
// before the numeric columns. NaN cells are written empty.
func WriteCSV(m *Matrix, path string, extra map[string][]string) error {
	for name, vals := range extra {
		if len(vals) != len(m.ConditionIDs) {
			return fmt.Errorf("extra column %s has %d values, want %d", name, len(vals), len(m.ConditionIDs))
		}
	}
	extraNames := sortedKeys(extra)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"condition_id"}, extraNames...)
	header = append(header, m.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, cid := range m.ConditionIDs {
		rec := make([]string, 0, len(header))
		rec = append(rec, cid)
		for _, name := range extraNames {
			rec = append(rec, extra[name][i])
		}
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				rec = append(rec, "")
			} else {
				rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
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

// ReadCSV loads a matrix written by WriteCSV. Columns where every non-empty
// cell parses as a float become matrix columns; the rest come back as string
// columns. Empty numeric cells read as NaN.
func ReadCSV(path string) (*Matrix, map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	header := records[0]
	if len(header) == 0 || header[0] != "condition_id" {
		return nil, nil, fmt.Errorf("%s: first column must be condition_id", path)
	}
	body := records[1:]

	numeric := make([]bool, len(header))
	for j := 1; j < len(header); j++ {
		numeric[j] = true
		for _, rec := range body {
			if rec[j] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(rec[j], 64); err != nil {
				numeric[j] = false
				break
			}
		}
	}

	conditionIDs := make([]string, len(body))
	var columns []string
	for j := 1; j < len(header); j++ {
		if numeric[j] {
			columns = append(columns, header[j])
		}
	}
	m := NewMatrix(conditionIDs, columns)
	extra := make(map[string][]string)

	for i, rec := range body {
		conditionIDs[i] = rec[0]
		m.rowIndex[rec[0]] = i
		col := 0
		for j := 1; j < len(header); j++ {
			if !numeric[j] {
				extra[header[j]] = append(extra[header[j]], rec[j])
				continue
			}
			v := math.NaN()
			if rec[j] != "" {
				v, _ = strconv.ParseFloat(rec[j], 64)
			}
			m.Values[i][col] = v
			col++
		}
	}
	// rowIndex was keyed off placeholder ids during NewMatrix; rebuilt above.
	delete(m.rowIndex, "")
	return m, extra, nil
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

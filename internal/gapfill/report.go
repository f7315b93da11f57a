package gapfill

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteReport stores the minimal set as CSV: reaction id, growth when the
// addition is disabled.
func WriteReport(res *Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"reaction_id", "growth_without"}); err != nil {
		return err
	}
	for _, a := range res.MinimalSet {
		if err := w.Write([]string{a.ReactionID, strconv.FormatFloat(a.GrowthWithout, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

package features

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

// PartRow is the on-disk schema of one FVA part file.
type PartRow struct {
	ConditionID    string  `parquet:"condition_id"`
	ObjectiveValue float64 `parquet:"objective_value"`
	ReactionID     string  `parquet:"reaction_id"`
	FVAMin         float64 `parquet:"fva_min"`
	FVAMax         float64 `parquet:"fva_max"`
}

// WritePart stores one condition's FVA rows as a parquet part file.
func WritePart(dir, conditionID string, rows []domain.FVARow) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating parts dir: %w", err)
	}
	out := make([]PartRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, PartRow{
			ConditionID:    r.ConditionID,
			ObjectiveValue: r.ObjectiveValue,
			ReactionID:     r.ReactionID,
			FVAMin:         r.Min,
			FVAMax:         r.Max,
		})
	}
	path := filepath.Join(dir, fmt.Sprintf("fva_%s.parquet", conditionID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating part file: %w", err)
	}
	w := parquet.NewGenericWriter[PartRow](f)
	if _, err := w.Write(out); err != nil {
		f.Close()
		return "", fmt.Errorf("writing part %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("closing part %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// ReadParts loads every *.parquet part under dir into FVA rows, sorted by
// file name for determinism.
func ReadParts(dir string) ([]domain.FVARow, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no parquet parts under %s", dir)
	}
	sort.Strings(paths)

	var rows []domain.FVARow
	for _, path := range paths {
		part, err := parquet.ReadFile[PartRow](path)
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", path, err)
		}
		for _, r := range part {
			rows = append(rows, domain.FVARow{
				ConditionID:    r.ConditionID,
				ObjectiveValue: r.ObjectiveValue,
				ReactionID:     r.ReactionID,
				Min:            r.FVAMin,
				Max:            r.FVAMax,
			})
		}
	}
	return rows, nil
}

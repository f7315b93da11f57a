package campaign

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/features"
	"github.com/mcrovella/fluxtwin/internal/regime"
)

// Artifact names under a campaign output directory.
const (
	PartsDir     = "fva_parts"
	LabelsFile   = "regime_labels.csv"
	FailuresFile = "failed_samples.csv"
)

func writeArtifacts(dir string, conds []*domain.Condition, out *Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	byCondition := make(map[string][]domain.FVARow)
	for _, row := range out.FVARows {
		byCondition[row.ConditionID] = append(byCondition[row.ConditionID], row)
	}
	for _, c := range conds {
		rows, ok := byCondition[c.ID]
		if !ok {
			continue
		}
		if _, err := features.WritePart(filepath.Join(dir, PartsDir), c.ID, rows); err != nil {
			return err
		}
	}

	if err := writeLabels(filepath.Join(dir, LabelsFile), out.Results); err != nil {
		return err
	}
	return writeFailures(filepath.Join(dir, FailuresFile), out.Failures)
}

func writeLabels(path string, results []*domain.ConditionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"condition_id", "acetate_mM", "o2_uptake", "nh4_uptake", "atpm_fixed",
		"objective_value", "status", "primary_regime",
	}
	for _, n := range regime.Nutrients {
		header = append(header, n+"_saturated", n+"_side")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		rec := []string{
			res.ConditionID,
			strconv.FormatFloat(res.AcetateMM, 'g', -1, 64),
			strconv.FormatFloat(res.O2Uptake, 'g', -1, 64),
			strconv.FormatFloat(res.NH4Uptake, 'g', -1, 64),
			strconv.FormatFloat(res.ATPMFixed, 'g', -1, 64),
			strconv.FormatFloat(res.ObjectiveValue, 'g', -1, 64),
			res.Status,
			res.PrimaryRegime,
		}
		byNutrient := make(map[string]domain.NutrientSaturation, len(res.Saturations))
		for _, s := range res.Saturations {
			byNutrient[s.Nutrient] = s
		}
		for _, n := range regime.Nutrients {
			s := byNutrient[n]
			rec = append(rec, strconv.FormatBool(s.Saturated), s.SatSide)
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

func writeFailures(path string, failures []domain.Failure) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"condition_id", "error_type", "error_message"}); err != nil {
		return err
	}
	for _, fl := range failures {
		if err := w.Write([]string{fl.ConditionID, fl.ErrorType, fl.ErrorMessage}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

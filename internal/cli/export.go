package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/features"
	"github.com/mcrovella/fluxtwin/internal/regime"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a recorded campaign to CSV/parquet",
	Long: `Export a campaign's condition results and FVA rows from the database
into the same artifact layout a live campaign writes.

Examples:
  fluxtwin export --campaign <id> --outdir exported/`,
	RunE: runExport,
}

var (
	exportCampaignID string
	exportOutDir     string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportCampaignID, "campaign", "", "Campaign id")
	exportCmd.Flags().StringVar(&exportOutDir, "outdir", "exported", "Output directory")
	exportCmd.MarkFlagRequired("campaign")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	camp, err := store.NewCampaignRepository(db).GetByID(ctx, exportCampaignID)
	if err != nil {
		return err
	}
	results, err := store.NewConditionResultRepository(db).ListByCampaign(ctx, exportCampaignID)
	if err != nil {
		return err
	}
	fvaRows, err := store.NewFVARepository(db).ListByCampaign(ctx, exportCampaignID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
		return err
	}
	if err := writeResultsCSV(filepath.Join(exportOutDir, "condition_results.csv"), results); err != nil {
		return err
	}

	byCondition := make(map[string][]domain.FVARow)
	var order []string
	for _, row := range fvaRows {
		if _, ok := byCondition[row.ConditionID]; !ok {
			order = append(order, row.ConditionID)
		}
		byCondition[row.ConditionID] = append(byCondition[row.ConditionID], row)
	}
	partsDir := filepath.Join(exportOutDir, "fva_parts")
	for _, cid := range order {
		if _, err := features.WritePart(partsDir, cid, byCondition[cid]); err != nil {
			return err
		}
	}

	fmt.Printf("Campaign %s (%s): %d conditions, %d fva rows exported to %s\n",
		camp.ID, camp.Name, len(results), len(fvaRows), exportOutDir)
	return nil
}

func writeResultsCSV(path string, results []*domain.ConditionResult) error {
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

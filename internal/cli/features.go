package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/campaign"
	"github.com/mcrovella/fluxtwin/internal/features"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "FVA feature tables",
}

var featuresCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Pivot FVA part files into a wide feature table",
	Long: `Read every parquet part under the campaign's fva_parts directory and
pivot the long rows into one row per condition with width__/mid__/
signchange__ columns.

Examples:
  fluxtwin features collect --parts out/fva_parts --out out/features.csv`,
	RunE: runFeaturesCollect,
}

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Join features with regime labels into a training dataset",
	Long: `Join the wide feature table with the campaign's regime-label table on
condition_id, keeping the design metadata and the primary regime label.

Examples:
  fluxtwin dataset build --features out/features.csv \
    --labels out/regime_labels.csv --out out/dataset.csv`,
	RunE: runDatasetBuild,
}

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Training datasets",
}

var (
	featPartsDir string
	featOutPath  string

	dsFeaturesPath string
	dsLabelsPath   string
	dsOutPath      string
)

func init() {
	rootCmd.AddCommand(featuresCmd)
	featuresCmd.AddCommand(featuresCollectCmd)
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetBuildCmd)

	featuresCollectCmd.Flags().StringVar(&featPartsDir, "parts", campaign.PartsDir, "FVA parts directory")
	featuresCollectCmd.Flags().StringVar(&featOutPath, "out", "features.csv", "Feature table output path")

	f := datasetBuildCmd.Flags()
	f.StringVar(&dsFeaturesPath, "features", "features.csv", "Wide feature table")
	f.StringVar(&dsLabelsPath, "labels", campaign.LabelsFile, "Regime label table")
	f.StringVar(&dsOutPath, "out", "dataset.csv", "Dataset output path")
}

func runFeaturesCollect(cmd *cobra.Command, args []string) error {
	rows, err := features.ReadParts(featPartsDir)
	if err != nil {
		return err
	}
	wide, err := features.BuildWide(features.BuildLong(rows))
	if err != nil {
		return err
	}
	if err := features.WriteCSV(wide, featOutPath, nil); err != nil {
		return err
	}
	fmt.Printf("%d conditions x %d columns written to %s\n", len(wide.ConditionIDs), len(wide.Columns), featOutPath)
	return nil
}

// metaColumns carried from the label table into the dataset.
var datasetMetaColumns = []string{"acetate_mM", "o2_uptake", "nh4_uptake", "atpm_fixed", "objective_value"}

func runDatasetBuild(cmd *cobra.Command, args []string) error {
	feats, _, err := features.ReadCSV(dsFeaturesPath)
	if err != nil {
		return err
	}
	labels, labelExtra, err := features.ReadCSV(dsLabelsPath)
	if err != nil {
		return err
	}
	regimes, ok := labelExtra["primary_regime"]
	if !ok {
		return fmt.Errorf("%s: missing primary_regime column", dsLabelsPath)
	}
	regimeByCondition := make(map[string]string, len(labels.ConditionIDs))
	for i, cid := range labels.ConditionIDs {
		regimeByCondition[cid] = regimes[i]
	}

	// Inner join on condition_id, label-table row order.
	var conditionIDs []string
	var labelCol []string
	featIndex := make(map[string]bool, len(feats.ConditionIDs))
	for _, cid := range feats.ConditionIDs {
		featIndex[cid] = true
	}
	for _, cid := range labels.ConditionIDs {
		if featIndex[cid] {
			conditionIDs = append(conditionIDs, cid)
			labelCol = append(labelCol, regimeByCondition[cid])
		}
	}
	if len(conditionIDs) == 0 {
		return fmt.Errorf("no overlapping condition ids between %s and %s", dsFeaturesPath, dsLabelsPath)
	}

	columns := append(append([]string{}, datasetMetaColumns...), feats.Columns...)
	out := features.NewMatrix(conditionIDs, columns)
	for _, cid := range conditionIDs {
		for _, c := range datasetMetaColumns {
			if labels.HasColumn(c) {
				if err := out.Set(cid, c, labels.At(cid, c)); err != nil {
					return err
				}
			} else {
				if err := out.Set(cid, c, math.NaN()); err != nil {
					return err
				}
			}
		}
		for _, c := range feats.Columns {
			if err := out.Set(cid, c, feats.At(cid, c)); err != nil {
				return err
			}
		}
	}

	if err := features.WriteCSV(out, dsOutPath, map[string][]string{"primary_regime": labelCol}); err != nil {
		return err
	}
	fmt.Printf("%d rows x %d columns written to %s\n", len(conditionIDs), len(columns)+1, dsOutPath)
	return nil
}

package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/features"
	"github.com/mcrovella/fluxtwin/internal/xai"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train boosted-tree explainers",
}

var trainRegimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Train the regime classifier and export feature importance",
	Long: `Fit a one-vs-rest gradient-boosted classifier on the primary regime
label and export mean |decision-path contribution| importances.

Examples:
  fluxtwin train regime --dataset out/dataset.csv --out out/importance_regime.csv`,
	RunE: runTrainRegime,
}

var trainSeverityCmd = &cobra.Command{
	Use:   "severity",
	Short: "Train the severity regressor and export feature importance",
	Long: `Fit a squared-loss gradient-boosted regressor on a numeric severity
target (default: the growth objective) and export importances.

Examples:
  fluxtwin train severity --dataset out/dataset.csv --target objective_value \
    --out out/importance_severity.csv`,
	RunE: runTrainSeverity,
}

var (
	trainDatasetPath string
	trainOutPath     string
	trainTopK        int
	trainTarget      string
	trainEstimators  int
	trainDepth       int
	trainRate        float64
)

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.AddCommand(trainRegimeCmd)
	trainCmd.AddCommand(trainSeverityCmd)

	for _, c := range []*cobra.Command{trainRegimeCmd, trainSeverityCmd} {
		f := c.Flags()
		f.StringVar(&trainDatasetPath, "dataset", "dataset.csv", "Training dataset CSV")
		f.StringVar(&trainOutPath, "out", "importance.csv", "Importance CSV output path")
		f.IntVar(&trainTopK, "top-k", 25, "Importance rows to keep (0 = all)")
		f.IntVar(&trainEstimators, "estimators", 100, "Boosting rounds")
		f.IntVar(&trainDepth, "depth", 3, "Tree depth")
		f.Float64Var(&trainRate, "rate", 0.1, "Learning rate")
	}
	trainSeverityCmd.Flags().StringVar(&trainTarget, "target", "objective_value", "Severity target column")
}

func trainOptions() xai.Options {
	opts := xai.DefaultOptions()
	opts.NEstimators = trainEstimators
	opts.MaxDepth = trainDepth
	opts.LearningRate = trainRate
	return opts
}

func runTrainRegime(cmd *cobra.Command, args []string) error {
	m, extra, err := features.ReadCSV(trainDatasetPath)
	if err != nil {
		return err
	}
	labels, ok := extra["primary_regime"]
	if !ok {
		return fmt.Errorf("%s: missing primary_regime column", trainDatasetPath)
	}

	x := m.Values
	xai.Impute(x, 0)
	clf, err := xai.TrainClassifier(x, labels, m.Columns, trainOptions())
	if err != nil {
		return err
	}

	imp := xai.TopK(xai.ClassifierImportance(clf, x), trainTopK)
	if err := xai.WriteImportanceCSV(imp, trainOutPath); err != nil {
		return err
	}

	fmt.Printf("Classes: %v\n", clf.Classes)
	fmt.Printf("Training accuracy: %.3f\n", clf.Accuracy(x, labels))
	fmt.Printf("%d importance rows written to %s\n", len(imp), trainOutPath)
	return nil
}

func runTrainSeverity(cmd *cobra.Command, args []string) error {
	m, _, err := features.ReadCSV(trainDatasetPath)
	if err != nil {
		return err
	}
	if !m.HasColumn(trainTarget) {
		return fmt.Errorf("%s: missing target column %s", trainDatasetPath, trainTarget)
	}

	y := m.Column(trainTarget)
	var cols []string
	for _, c := range m.Columns {
		if c != trainTarget {
			cols = append(cols, c)
		}
	}
	x := make([][]float64, len(m.ConditionIDs))
	for i, cid := range m.ConditionIDs {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = m.At(cid, c)
		}
		x[i] = row
	}
	xai.Impute(x, 0)

	reg, err := xai.TrainRegressor(x, y, cols, trainOptions())
	if err != nil {
		return err
	}

	imp := xai.TopK(xai.RegressorImportance(reg, x), trainTopK)
	if err := xai.WriteImportanceCSV(imp, trainOutPath); err != nil {
		return err
	}

	var sse float64
	for i, row := range x {
		d := reg.Predict(row) - y[i]
		sse += d * d
	}
	fmt.Printf("Training RMSE: %.6f\n", math.Sqrt(sse/float64(len(x))))
	fmt.Printf("%d importance rows written to %s\n", len(imp), trainOutPath)
	return nil
}

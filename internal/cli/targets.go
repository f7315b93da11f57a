package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/model"
	"github.com/mcrovella/fluxtwin/internal/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Select the FVA target reaction set",
	Long: `Select the reactions tracked by targeted FVA: pathway-anchor keyword
matches minus blocked reactions, auto-filled from a pFBA flux ranking to the
exact requested count.

Examples:
  fluxtwin targets --model model.json --anchors anchors.yaml --count 60 --out targets.json`,
	RunE: runTargets,
}

var (
	targetsModelPath   string
	targetsAnchorsPath string
	targetsCount       int
	targetsOutPath     string
)

func init() {
	rootCmd.AddCommand(targetsCmd)

	targetsCmd.Flags().StringVar(&targetsModelPath, "model", "", "Model file (.json/.xml/.sbml)")
	targetsCmd.Flags().StringVar(&targetsAnchorsPath, "anchors", "", "Anchors YAML")
	targetsCmd.Flags().IntVar(&targetsCount, "count", 60, "Exact number of target reactions")
	targetsCmd.Flags().StringVar(&targetsOutPath, "out", "targets.json", "Target list output path")
	targetsCmd.MarkFlagRequired("model")
	targetsCmd.MarkFlagRequired("anchors")
}

func runTargets(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	m, err := model.Load(targetsModelPath)
	if err != nil {
		return err
	}
	anchors, err := targets.LoadAnchors(targetsAnchorsPath)
	if err != nil {
		return err
	}

	ids, err := targets.Select(ctx, m, anchors, targetsCount)
	if err != nil {
		return err
	}
	if err := targets.SaveJSON(ids, targetsOutPath); err != nil {
		return err
	}
	fmt.Printf("%d targets written to %s\n", len(ids), targetsOutPath)
	return nil
}

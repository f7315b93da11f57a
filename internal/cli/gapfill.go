package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/gapfill"
	"github.com/mcrovella/fluxtwin/internal/model"
)

var gapfillCmd = &cobra.Command{
	Use:   "gapfill",
	Short: "Gap-fill a non-growing draft model",
	Long: `Add every reference-universe reaction missing from the draft, verify
growth, then prune the additions back to a minimal set.

Examples:
  fluxtwin gapfill --draft draft.json --universe universe.json --out gapfill.csv`,
	RunE: runGapfill,
}

var (
	gapDraftPath    string
	gapUniversePath string
	gapThreshold    float64
	gapOutPath      string
)

func init() {
	rootCmd.AddCommand(gapfillCmd)

	f := gapfillCmd.Flags()
	f.StringVar(&gapDraftPath, "draft", "", "Draft model file")
	f.StringVar(&gapUniversePath, "universe", "", "Reference universe model file")
	f.Float64Var(&gapThreshold, "threshold", gapfill.DefaultGrowthThreshold, "Minimum growth objective")
	f.StringVar(&gapOutPath, "out", "gapfill.csv", "Minimal-set CSV output path")
	gapfillCmd.MarkFlagRequired("draft")
	gapfillCmd.MarkFlagRequired("universe")
}

func runGapfill(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	draft, err := model.Load(gapDraftPath)
	if err != nil {
		return err
	}
	universe, err := model.Load(gapUniversePath)
	if err != nil {
		return err
	}

	res, err := gapfill.Fill(ctx, draft, universe, gapThreshold)
	if err != nil {
		return err
	}
	if err := gapfill.WriteReport(res, gapOutPath); err != nil {
		return err
	}

	fmt.Printf("%d candidates, %d kept, growth %.6f\n", res.CandidateCount, len(res.MinimalSet), res.Growth)
	for _, a := range res.MinimalSet {
		fmt.Printf("  %s (growth without: %.3g)\n", a.ReactionID, a.GrowthWithout)
	}
	fmt.Printf("Report written to %s\n", gapOutPath)
	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/causal"
	"github.com/mcrovella/fluxtwin/internal/features"
	"github.com/mcrovella/fluxtwin/internal/xai"
)

var causalCmd = &cobra.Command{
	Use:   "causal",
	Short: "PC-stable causal discovery over the dataset",
	Long: `Run PC-stable skeleton discovery with Fisher-z partial-correlation
tests over the design variables, the top explainer features, and the outcome,
plus bootstrap edge-stability scores.

Examples:
  fluxtwin causal --dataset out/dataset.csv --importance out/importance_regime.csv \
    --outcome objective_value --bootstrap 100 --outdir causal/`,
	RunE: runCausal,
}

var (
	causalDatasetPath    string
	causalImportancePath string
	causalAlpha          float64
	causalMaxCond        int
	causalTopK           int
	causalBootstrap      int
	causalSeed           int64
	causalOutcome        string
	causalExogenous      []string
	causalOutDir         string
)

func init() {
	rootCmd.AddCommand(causalCmd)

	f := causalCmd.Flags()
	f.StringVar(&causalDatasetPath, "dataset", "dataset.csv", "Dataset CSV")
	f.StringVar(&causalImportancePath, "importance", "", "Importance CSV restricting the feature columns")
	f.Float64Var(&causalAlpha, "alpha", 0.05, "Independence-test significance level")
	f.IntVar(&causalMaxCond, "max-cond", 3, "Max conditioning set size")
	f.IntVar(&causalTopK, "top-k", 15, "Top importance features to include")
	f.IntVar(&causalBootstrap, "bootstrap", 0, "Bootstrap resamples (0 = skip)")
	f.Int64Var(&causalSeed, "seed", 42, "Jitter and bootstrap seed")
	f.StringVar(&causalOutcome, "outcome", "objective_value", "Outcome variable (no outgoing edges)")
	f.StringSliceVar(&causalExogenous, "exogenous", []string{"acetate_mM", "o2_uptake", "nh4_uptake", "atpm_fixed"},
		"Design variables (no incoming edges)")
	f.StringVar(&causalOutDir, "outdir", "causal", "Artifact output directory")
}

func runCausal(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	m, _, err := features.ReadCSV(causalDatasetPath)
	if err != nil {
		return err
	}

	columns, err := causalColumns(m)
	if err != nil {
		return err
	}
	values := make(map[string][]float64, len(columns))
	for _, c := range columns {
		values[c] = m.Column(c)
	}

	cfg := causal.Config{
		Alpha:     causalAlpha,
		MaxCond:   causalMaxCond,
		Exogenous: causalExogenous,
		Outcome:   causalOutcome,
	}
	res, err := causal.Run(columns, values, cfg, causalSeed)
	if err != nil {
		return err
	}

	var stability []causal.EdgeStability
	if causalBootstrap > 0 {
		stability, err = causal.Bootstrap(ctx, columns, values, cfg, causalBootstrap, causalSeed)
		if err != nil {
			return err
		}
	}

	if err := causal.WriteEdges(res.Edges, causalOutDir); err != nil {
		return err
	}
	if stability != nil {
		if err := causal.WriteStability(stability, causalOutDir); err != nil {
			return err
		}
	}
	meta := causal.Metadata{
		Rows:             res.Rows,
		Columns:          res.Columns,
		Alpha:            causalAlpha,
		MaxCond:          causalMaxCond,
		Seed:             causalSeed,
		Bootstrap:        causalBootstrap,
		Tests:            res.Tests,
		JitterScale:      res.JitterScale,
		DroppedNaN:       res.DroppedNaN,
		DroppedConstant:  res.DroppedConstant,
		DroppedCollinear: res.DroppedCollinear,
		Exogenous:        causalExogenous,
		Outcome:          causalOutcome,
		CreatedAt:        time.Now().UTC(),
	}
	if err := causal.WriteMetadata(meta, causalOutDir); err != nil {
		return err
	}

	directed := 0
	for _, e := range res.Edges {
		if e.Directed {
			directed++
		}
	}
	fmt.Printf("%d edges (%d directed) over %d variables, %d tests\n",
		len(res.Edges), directed, len(res.Columns), res.Tests)
	fmt.Printf("Artifacts under %s\n", causalOutDir)
	return nil
}

// causalColumns picks the variables: exogenous design columns, the outcome,
// and either the top imported features or every feature column.
func causalColumns(m *features.Matrix) ([]string, error) {
	var columns []string
	seen := make(map[string]bool)
	add := func(c string) {
		if c != "" && !seen[c] && m.HasColumn(c) {
			seen[c] = true
			columns = append(columns, c)
		}
	}

	for _, c := range causalExogenous {
		add(c)
	}
	add(causalOutcome)

	if causalImportancePath != "" {
		imp, err := xai.ReadImportanceCSV(causalImportancePath)
		if err != nil {
			return nil, err
		}
		for _, r := range xai.TopK(imp, causalTopK) {
			add(r.Feature)
		}
	} else {
		for _, c := range m.FeatureColumns() {
			add(c)
		}
	}

	if len(columns) < 3 {
		return nil, fmt.Errorf("causal: only %d usable columns selected", len(columns))
	}
	return columns, nil
}

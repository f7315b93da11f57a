// Package cli wires the fluxtwin commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fluxtwin",
	Short: "Genome-scale metabolic digital twin pipeline",
	Long: `fluxtwin builds a constraint-based digital twin of an acetate-growing
bacterium: FBA/FVA simulation campaigns, growth-regime labeling, ATPM
calibration, gap-filling, boosted-tree explainers, and causal discovery.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

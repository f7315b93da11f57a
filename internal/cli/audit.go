package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/audit"
	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit medium exchange ids against a model",
	Long: `Check every exchange reaction a medium config references against the
model, suggesting replacements for the missing ones.

Examples:
  fluxtwin audit --model model.json --medium medium.yaml
  fluxtwin audit --model model.xml --medium medium.yaml --out audit.csv`,
	RunE: runAudit,
}

var (
	auditModelPath  string
	auditMediumPath string
	auditOutPath    string
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditModelPath, "model", "", "Model file (.json/.xml/.sbml)")
	auditCmd.Flags().StringVar(&auditMediumPath, "medium", "", "Medium config (.yaml/.json)")
	auditCmd.Flags().StringVar(&auditOutPath, "out", "", "Optional audit CSV output path")
	auditCmd.MarkFlagRequired("model")
	auditCmd.MarkFlagRequired("medium")
}

func runAudit(cmd *cobra.Command, args []string) error {
	m, err := model.Load(auditModelPath)
	if err != nil {
		return err
	}
	cfg, err := medium.LoadConfig(auditMediumPath)
	if err != nil {
		return err
	}

	entries := audit.Run(m, cfg)
	missing := 0
	for _, e := range entries {
		if e.Present {
			fmt.Printf("ok      %-20s (%s)\n", e.ReactionID, e.Source)
			continue
		}
		missing++
		fmt.Printf("missing %-20s (%s)", e.ReactionID, e.Source)
		for _, s := range e.Suggestions {
			fmt.Printf("  %s", s.ReactionID)
		}
		fmt.Println()
	}
	fmt.Printf("%d referenced, %d missing\n", len(entries), missing)

	if auditOutPath != "" {
		if err := audit.WriteCSV(entries, auditOutPath); err != nil {
			return err
		}
		fmt.Printf("Audit written to %s\n", auditOutPath)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
	"github.com/mcrovella/fluxtwin/internal/calibrate"
	"github.com/mcrovella/fluxtwin/internal/campaign"
	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/medium"
	"github.com/mcrovella/fluxtwin/internal/model"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate ATPM against measured OD anchors",
	Long: `Scan FBA growth across an ATPM grid for each anchor condition, pick the
best ATPM per anchor, and fit atpm = a + b*acetate_mM.

Examples:
  fluxtwin calibrate --model model.json --medium medium.yaml \
    --conditions anchors.csv --mode norm --outdir calib/
  fluxtwin calibrate ... --mode rank --record`,
	RunE: runCalibrate,
}

var (
	calModelPath      string
	calMediumPath     string
	calConditionsPath string
	calMode           string
	calGridLo         float64
	calGridHi         float64
	calGridStep       float64
	calATPMRxn        string
	calOutDir         string
	calRecord         bool
)

func init() {
	rootCmd.AddCommand(calibrateCmd)

	f := calibrateCmd.Flags()
	f.StringVar(&calModelPath, "model", "", "Model file (.json/.xml/.sbml)")
	f.StringVar(&calMediumPath, "medium", "", "Medium config (.yaml/.json)")
	f.StringVar(&calConditionsPath, "conditions", "", "Anchor condition CSV (needs acetate_mM, measured_OD)")
	f.StringVar(&calMode, "mode", calibrate.ModeNorm, "Best-ATPM mode: norm or rank")
	f.Float64Var(&calGridLo, "grid-lo", 0, "ATPM grid start")
	f.Float64Var(&calGridHi, "grid-hi", 25, "ATPM grid end (inclusive)")
	f.Float64Var(&calGridStep, "grid-step", 2.5, "ATPM grid step")
	f.StringVar(&calATPMRxn, "atpm-rxn", campaign.DefaultATPMReaction, "Maintenance reaction id")
	f.StringVar(&calOutDir, "outdir", "calibration", "Artifact output directory")
	f.BoolVar(&calRecord, "record", false, "Record the fit in the database")
	calibrateCmd.MarkFlagRequired("model")
	calibrateCmd.MarkFlagRequired("medium")
	calibrateCmd.MarkFlagRequired("conditions")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	m, err := model.Load(calModelPath)
	if err != nil {
		return err
	}
	med, err := medium.LoadConfig(calMediumPath)
	if err != nil {
		return err
	}
	conds, err := medium.LoadConditions(calConditionsPath)
	if err != nil {
		return err
	}
	anchors := anchorsOnly(conds)
	if len(anchors) == 0 {
		return fmt.Errorf("no anchor conditions with acetate_mM and measured_OD in %s", calConditionsPath)
	}

	grid, err := calibrate.Grid(calGridLo, calGridHi, calGridStep)
	if err != nil {
		return err
	}
	scan, err := calibrate.Scan(ctx, m, med, anchors, calATPMRxn, grid)
	if err != nil {
		return err
	}
	best, err := calibrate.Pick(scan, calMode)
	if err != nil {
		return err
	}
	fit, err := calibrate.Fit(best, calMode)
	if err != nil {
		return err
	}

	if err := calibrate.WriteScan(calOutDir, scan); err != nil {
		return err
	}
	if err := calibrate.WriteBest(calOutDir, best); err != nil {
		return err
	}
	if err := calibrate.SaveFit(fit, calOutDir); err != nil {
		return err
	}

	if calRecord {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.NewCalibrationRepository(db).Create(ctx, fit); err != nil {
			return err
		}
	}

	fmt.Printf("ATPM fit: a=%.4f b=%.4f (mode %s, %d anchors)\n", fit.A, fit.B, fit.Mode, len(fit.AnchorsUsed))
	fmt.Printf("Artifacts under %s\n", calOutDir)
	return nil
}

func anchorsOnly(conds []*domain.Condition) []*domain.Condition {
	var out []*domain.Condition
	for _, c := range conds {
		if _, ok := c.Float("acetate_mM"); !ok {
			continue
		}
		if _, ok := c.Float("measured_OD"); !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

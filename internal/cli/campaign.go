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
	"github.com/mcrovella/fluxtwin/internal/regime"
	"github.com/mcrovella/fluxtwin/internal/targets"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Sampled simulation campaigns",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Latin-hypercube simulation campaign",
	Long: `Simulate a sampled campaign: each condition gets exchange bounds from
the medium config, oxygen/ammonium uptake caps and a fixed ATPM flux from the
design, then FBA plus targeted FVA and a growth-regime label.

Examples:
  fluxtwin campaign run --model model.json --medium medium.yaml \
    --regimes regimes.yaml --targets targets.json --samples 500 --outdir out/
  fluxtwin campaign run ... --calibrated --record`,
	RunE: runCampaign,
}

var (
	campModelPath   string
	campMediumPath  string
	campRegimesPath string
	campTargetsPath string
	campName        string
	campSamples     int
	campSeed        int64
	campFraction    float64
	campWorkers     int
	campOutDir      string
	campATPMRxn     string
	campFitPath     string
	campCalibrated  bool
	campRecord      bool
)

func init() {
	rootCmd.AddCommand(campaignCmd)
	campaignCmd.AddCommand(campaignRunCmd)

	f := campaignRunCmd.Flags()
	f.StringVar(&campModelPath, "model", "", "Model file (.json/.xml/.sbml)")
	f.StringVar(&campMediumPath, "medium", "", "Medium config (.yaml/.json)")
	f.StringVar(&campRegimesPath, "regimes", "", "Regime candidates YAML")
	f.StringVar(&campTargetsPath, "targets", "", "Target list JSON")
	f.StringVar(&campName, "name", "campaign", "Campaign name")
	f.IntVar(&campSamples, "samples", 500, "Number of sampled conditions")
	f.Int64Var(&campSeed, "seed", 42, "Design seed")
	f.Float64Var(&campFraction, "fraction", 0.9, "FVA fraction of optimum")
	f.IntVar(&campWorkers, "workers", 4, "Worker goroutines")
	f.StringVar(&campOutDir, "outdir", "campaign_out", "Artifact output directory")
	f.StringVar(&campATPMRxn, "atpm-rxn", campaign.DefaultATPMReaction, "Maintenance reaction id")
	f.StringVar(&campFitPath, "fit", "", "Calibration fit JSON (implies calibrated ATPM)")
	f.BoolVar(&campCalibrated, "calibrated", false, "Use the latest stored calibration fit")
	f.BoolVar(&campRecord, "record", false, "Record results in the database")
	campaignRunCmd.MarkFlagRequired("model")
	campaignRunCmd.MarkFlagRequired("medium")
	campaignRunCmd.MarkFlagRequired("regimes")
	campaignRunCmd.MarkFlagRequired("targets")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	m, err := model.Load(campModelPath)
	if err != nil {
		return err
	}
	med, err := medium.LoadConfig(campMediumPath)
	if err != nil {
		return err
	}
	cand, err := regime.LoadCandidates(campRegimesPath)
	if err != nil {
		return err
	}
	targetIDs, err := targets.LoadJSON(campTargetsPath)
	if err != nil {
		return err
	}

	runner := &campaign.Runner{
		Model:             m,
		ModelPath:         campModelPath,
		Medium:            med,
		Candidates:        cand,
		Targets:           targetIDs,
		Workers:           campWorkers,
		FractionOfOptimum: campFraction,
		ATPMReaction:      campATPMRxn,
		OutDir:            campOutDir,
	}

	var fit *domain.CalibrationFit
	switch {
	case campFitPath != "":
		if fit, err = calibrate.LoadFit(campFitPath); err != nil {
			return err
		}
	case campCalibrated:
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		fit, err = store.NewCalibrationRepository(db).Latest(ctx, "atpm_linear")
		if err != nil {
			return err
		}
	}
	runner.Fit = fit

	if campRecord {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		runner.Campaigns = store.NewCampaignRepository(db)
		runner.Results = store.NewConditionResultRepository(db)
		runner.FVA = store.NewFVARepository(db)
	}

	exporter := metricsExporter(ctx)
	defer exporter.Close(ctx)
	runner.Metrics = exporter

	out, err := runner.Run(ctx, campName, campSamples, campSeed)
	if err != nil {
		return err
	}

	fmt.Printf("Campaign %s: %d optimal, %d failed\n", out.Campaign.ID, len(out.Results), len(out.Failures))
	fmt.Printf("Artifacts under %s\n", campOutDir)
	return nil
}

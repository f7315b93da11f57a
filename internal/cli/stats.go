package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recorded campaign statistics",
	Long: `Show aggregate statistics for recorded campaigns.

Examples:
  fluxtwin stats                  # List recent campaigns
  fluxtwin stats --campaign <id>  # Aggregate one campaign`,
	RunE: runStats,
}

var statsCampaignID string

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsCampaignID, "campaign", "", "Campaign id")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if statsCampaignID == "" {
		campaigns, err := store.NewCampaignRepository(db).List(ctx, 20)
		if err != nil {
			return err
		}
		if len(campaigns) == 0 {
			fmt.Println("No campaigns recorded")
			return nil
		}
		for _, c := range campaigns {
			status := "running"
			if c.EndedAt != nil {
				status = "done"
			}
			fmt.Printf("%s  %-20s %5d samples  seed %d  %s  %s\n",
				c.ID, c.Name, c.Samples, c.Seed, c.ATPMMode, status)
		}
		return nil
	}

	stats, err := store.NewStatsRepository(db).CampaignAggregate(ctx, statsCampaignID)
	if err != nil {
		return err
	}

	fmt.Printf("Conditions:  %d\n", stats.Conditions)
	fmt.Printf("Infeasible:  %d\n", stats.Infeasible)
	fmt.Printf("Mean growth: %.6f\n", stats.MeanGrowth)
	fmt.Println("Regimes:")

	regimes := make([]string, 0, len(stats.RegimeCounts))
	for r := range stats.RegimeCounts {
		regimes = append(regimes, r)
	}
	sort.Strings(regimes)
	for _, r := range regimes {
		fmt.Printf("  %-15s %d\n", r, stats.RegimeCounts[r])
	}
	return nil
}

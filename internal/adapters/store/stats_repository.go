package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcrovella/fluxtwin/internal/ports"
)

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) CampaignAggregate(ctx context.Context, campaignID string) (*ports.CampaignStats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status != 'optimal' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status = 'optimal' THEN objective_value END), 0)
		FROM condition_results WHERE campaign_id = ?
	`, campaignID)

	stats := &ports.CampaignStats{RegimeCounts: make(map[string]int64)}
	if err := row.Scan(&stats.Conditions, &stats.Infeasible, &stats.MeanGrowth); err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT primary_regime, COUNT(*)
		FROM condition_results WHERE campaign_id = ?
		GROUP BY primary_regime ORDER BY primary_regime
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count regimes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var regime sql.NullString
		var n int64
		if err := rows.Scan(&regime, &n); err != nil {
			return nil, fmt.Errorf("failed to scan regime count: %w", err)
		}
		stats.RegimeCounts[regime.String] = n
	}
	return stats, rows.Err()
}

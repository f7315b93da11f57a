// Package ports declares the persistence and observability interfaces the
// pipeline depends on.
package ports

import (
	"context"
	"time"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context, limit int) ([]*domain.Campaign, error)
	MarkEnded(ctx context.Context, id string, endedAt time.Time) error
}

type ConditionResultRepository interface {
	CreateBatch(ctx context.Context, results []*domain.ConditionResult) error
	ListByCampaign(ctx context.Context, campaignID string) ([]*domain.ConditionResult, error)
}

type FVARepository interface {
	CreateBatch(ctx context.Context, campaignID string, rows []domain.FVARow) error
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.FVARow, error)
}

type CalibrationRepository interface {
	Create(ctx context.Context, fit *domain.CalibrationFit) error
	Latest(ctx context.Context, fitType string) (*domain.CalibrationFit, error)
}

// CampaignStats aggregates one campaign's simulated conditions.
type CampaignStats struct {
	Conditions   int64
	Infeasible   int64
	MeanGrowth   float64
	RegimeCounts map[string]int64
}

type StatsRepository interface {
	CampaignAggregate(ctx context.Context, campaignID string) (*CampaignStats, error)
}

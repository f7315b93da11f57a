package ports

import (
	"context"
	"time"
)

// MetricsExporter exports per-condition solve metrics to an external
// observability system.
type MetricsExporter interface {
	// ExportConditionMetrics exports metrics for one simulated condition.
	ExportConditionMetrics(ctx context.Context, m *ConditionMetrics) error
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}

// ConditionMetrics describes one condition solve.
type ConditionMetrics struct {
	CampaignID    string
	ConditionID   string
	Status        string
	PrimaryRegime string
	SolveDuration time.Duration
}

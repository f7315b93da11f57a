package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

type FVARepository struct {
	db *sql.DB
}

func NewFVARepository(db *sql.DB) *FVARepository {
	return &FVARepository{db: db}
}

func (r *FVARepository) CreateBatch(ctx context.Context, campaignID string, rows []domain.FVARow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fva_results (
			campaign_id, condition_id, reaction_id, objective_value, fva_min, fva_max
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare fva insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx,
			campaignID, row.ConditionID, row.ReactionID,
			row.ObjectiveValue, row.Min, row.Max,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fva row %s/%s: %w", row.ConditionID, row.ReactionID, err)
		}
	}
	return tx.Commit()
}

func (r *FVARepository) ListByCampaign(ctx context.Context, campaignID string) ([]domain.FVARow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT condition_id, reaction_id, objective_value, fva_min, fva_max
		FROM fva_results WHERE campaign_id = ? ORDER BY condition_id, reaction_id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fva results: %w", err)
	}
	defer rows.Close()

	var out []domain.FVARow
	for rows.Next() {
		var row domain.FVARow
		if err := rows.Scan(&row.ConditionID, &row.ReactionID, &row.ObjectiveValue, &row.Min, &row.Max); err != nil {
			return nil, fmt.Errorf("failed to scan fva row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullIfNaN(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(nf sql.NullFloat64) float64 {
	if !nf.Valid {
		return math.NaN()
	}
	return nf.Float64
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/util"
)

type ConditionResultRepository struct {
	db *sql.DB
}

func NewConditionResultRepository(db *sql.DB) *ConditionResultRepository {
	return &ConditionResultRepository{db: db}
}

func (r *ConditionResultRepository) CreateBatch(ctx context.Context, results []*domain.ConditionResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	resStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO condition_results (
			campaign_id, condition_id, objective_value, status, primary_regime,
			acetate_mm, o2_uptake, nh4_uptake, atpm_fixed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare condition insert: %w", err)
	}
	defer resStmt.Close()

	satStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nutrient_saturations (
			campaign_id, condition_id, nutrient, reaction_id, flux,
			lower_bound, upper_bound, is_constrained, saturated, sat_side
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare saturation insert: %w", err)
	}
	defer satStmt.Close()

	for _, res := range results {
		_, err = resStmt.ExecContext(ctx,
			res.CampaignID, res.ConditionID, res.ObjectiveValue, res.Status,
			res.PrimaryRegime, res.AcetateMM, res.O2Uptake, res.NH4Uptake, res.ATPMFixed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert condition %s: %w", res.ConditionID, err)
		}
		for _, s := range res.Saturations {
			_, err = satStmt.ExecContext(ctx,
				res.CampaignID, res.ConditionID, s.Nutrient,
				util.NullString(s.ReactionID), nullIfNaN(s.Flux),
				s.LowerBound, s.UpperBound,
				util.BoolToInt64(s.IsConstrained), util.BoolToInt64(s.Saturated), s.SatSide,
			)
			if err != nil {
				return fmt.Errorf("failed to insert saturation %s/%s: %w", res.ConditionID, s.Nutrient, err)
			}
		}
	}
	return tx.Commit()
}

func (r *ConditionResultRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*domain.ConditionResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id, condition_id, objective_value, status, primary_regime,
		       acetate_mm, o2_uptake, nh4_uptake, atpm_fixed
		FROM condition_results WHERE campaign_id = ? ORDER BY condition_id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list condition results: %w", err)
	}
	defer rows.Close()

	var out []*domain.ConditionResult
	index := make(map[string]*domain.ConditionResult)
	for rows.Next() {
		var res domain.ConditionResult
		err = rows.Scan(
			&res.CampaignID, &res.ConditionID, &res.ObjectiveValue, &res.Status,
			&res.PrimaryRegime, &res.AcetateMM, &res.O2Uptake, &res.NH4Uptake, &res.ATPMFixed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan condition result: %w", err)
		}
		out = append(out, &res)
		index[res.ConditionID] = &res
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	satRows, err := r.db.QueryContext(ctx, `
		SELECT condition_id, nutrient, reaction_id, flux, lower_bound,
		       upper_bound, is_constrained, saturated, sat_side
		FROM nutrient_saturations WHERE campaign_id = ? ORDER BY condition_id, nutrient
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saturations: %w", err)
	}
	defer satRows.Close()

	for satRows.Next() {
		var conditionID string
		var s domain.NutrientSaturation
		var rxn sql.NullString
		var flux sql.NullFloat64
		var constrained, saturated int64
		err = satRows.Scan(
			&conditionID, &s.Nutrient, &rxn, &flux,
			&s.LowerBound, &s.UpperBound, &constrained, &saturated, &s.SatSide,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saturation: %w", err)
		}
		s.ReactionID = rxn.String
		s.Flux = floatOrNaN(flux)
		s.IsConstrained = constrained == 1
		s.Saturated = saturated == 1
		if res, ok := index[conditionID]; ok {
			res.Saturations = append(res.Saturations, s)
		}
	}
	return out, satRows.Err()
}

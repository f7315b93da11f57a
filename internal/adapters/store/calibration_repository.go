package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcrovella/fluxtwin/internal/domain"
)

type CalibrationRepository struct {
	db *sql.DB
}

func NewCalibrationRepository(db *sql.DB) *CalibrationRepository {
	return &CalibrationRepository{db: db}
}

func (r *CalibrationRepository) Create(ctx context.Context, fit *domain.CalibrationFit) error {
	anchors, err := json.Marshal(fit.AnchorsUsed)
	if err != nil {
		return fmt.Errorf("marshal anchors: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO calibration_fits (
			id, fit_type, mode, a, b, clip_min, clip_max, anchors_used, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fit.ID, fit.FitType, fit.Mode, fit.A, fit.B,
		fit.ClipMin, fit.ClipMax, string(anchors),
		fit.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert calibration fit: %w", err)
	}
	return nil
}

func (r *CalibrationRepository) Latest(ctx context.Context, fitType string) (*domain.CalibrationFit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, fit_type, mode, a, b, clip_min, clip_max, anchors_used, created_at
		FROM calibration_fits WHERE fit_type = ? ORDER BY created_at DESC LIMIT 1
	`, fitType)

	var fit domain.CalibrationFit
	var anchors, created string
	err := row.Scan(&fit.ID, &fit.FitType, &fit.Mode, &fit.A, &fit.B,
		&fit.ClipMin, &fit.ClipMax, &anchors, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no calibration fit of type %s", fitType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan calibration fit: %w", err)
	}
	if err := json.Unmarshal([]byte(anchors), &fit.AnchorsUsed); err != nil {
		return nil, fmt.Errorf("unmarshal anchors: %w", err)
	}
	if t, err := time.Parse(timeLayout, created); err == nil {
		fit.CreatedAt = t
	}
	return &fit, nil
}

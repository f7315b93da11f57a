// Package store implements the persistence ports on libsql with raw SQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/util"
)

const timeLayout = time.RFC3339

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, name, model_path, samples, seed, fraction_of_optimum,
			atpm_mode, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var ended sql.NullString
	if c.EndedAt != nil {
		ended = util.NullString(c.EndedAt.Format(timeLayout))
	}
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.ModelPath,
		c.Samples,
		c.Seed,
		c.FractionOfOptimum,
		c.ATPMMode,
		c.StartedAt.Format(timeLayout),
		ended,
	)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := `
		SELECT id, name, model_path, samples, seed, fraction_of_optimum,
		       atpm_mode, started_at, ended_at, created_at
		FROM campaigns WHERE id = ?
	`
	return scanCampaign(r.db.QueryRowContext(ctx, query, id))
}

func (r *CampaignRepository) List(ctx context.Context, limit int) ([]*domain.Campaign, error) {
	query := `
		SELECT id, name, model_path, samples, seed, fraction_of_optimum,
		       atpm_mode, started_at, ended_at, created_at
		FROM campaigns ORDER BY created_at DESC LIMIT ?
	`
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var out []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CampaignRepository) MarkEnded(ctx context.Context, id string, endedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET ended_at = ? WHERE id = ?`,
		endedAt.Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign ended: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("campaign not found: %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var c domain.Campaign
	var started, created string
	var ended sql.NullString
	err := row.Scan(
		&c.ID, &c.Name, &c.ModelPath, &c.Samples, &c.Seed,
		&c.FractionOfOptimum, &c.ATPMMode, &started, &ended, &created,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("campaign not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}
	if c.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if ended.Valid {
		t, err := time.Parse(timeLayout, ended.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ended_at: %w", err)
		}
		c.EndedAt = &t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
		c.CreatedAt = t
	}
	return &c, nil
}

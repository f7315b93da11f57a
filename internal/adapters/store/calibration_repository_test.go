package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
	"github.com/mcrovella/fluxtwin/internal/domain"
)

func TestCalibrationLatest(t *testing.T) {
	db := testDB(t)
	repo := store.NewCalibrationRepository(db)
	ctx := context.Background()

	older := &domain.CalibrationFit{
		ID: "fit-old", FitType: "atpm_linear", Mode: "norm",
		A: 3, B: 0.05, ClipMin: 0, ClipMax: 200,
		AnchorsUsed: []string{"a1"},
		CreatedAt:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &domain.CalibrationFit{
		ID: "fit-new", FitType: "atpm_linear", Mode: "rank",
		A: 5, B: 0.1, ClipMin: 0, ClipMax: 200,
		AnchorsUsed: []string{"a1", "a2"},
		CreatedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Latest(ctx, "atpm_linear")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.ID != "fit-new" || got.Mode != "rank" || got.B != 0.1 {
		t.Errorf("Latest = %+v, want fit-new", got)
	}
	if len(got.AnchorsUsed) != 2 || got.AnchorsUsed[1] != "a2" {
		t.Errorf("AnchorsUsed = %v", got.AnchorsUsed)
	}
	if !got.CreatedAt.Equal(newer.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, newer.CreatedAt)
	}
}

func TestCalibrationLatestMissing(t *testing.T) {
	db := testDB(t)
	if _, err := store.NewCalibrationRepository(db).Latest(context.Background(), "unknown_type"); err == nil {
		t.Error("expected error when no fit of the type exists")
	}
}

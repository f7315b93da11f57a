package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
)

func TestCampaignCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := store.NewCampaignRepository(db)
	ctx := context.Background()

	want := insertCampaign(t, db, "camp-get")

	got, err := repo.GetByID(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != want.Name || got.Samples != want.Samples || got.Seed != want.Seed {
		t.Errorf("GetByID = %+v, want %+v", got, want)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil", got.EndedAt)
	}
}

func TestCampaignGetMissing(t *testing.T) {
	db := testDB(t)
	if _, err := store.NewCampaignRepository(db).GetByID(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown campaign id")
	}
}

func TestCampaignMarkEnded(t *testing.T) {
	db := testDB(t)
	repo := store.NewCampaignRepository(db)
	ctx := context.Background()

	c := insertCampaign(t, db, "camp-ended")
	ended := time.Date(2026, 8, 1, 11, 30, 0, 0, time.UTC)
	if err := repo.MarkEnded(ctx, c.ID, ended); err != nil {
		t.Fatalf("MarkEnded failed: %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}

	if err := repo.MarkEnded(ctx, "nope", ended); err == nil {
		t.Error("expected error marking unknown campaign ended")
	}
}

func TestCampaignList(t *testing.T) {
	db := testDB(t)
	repo := store.NewCampaignRepository(db)

	insertCampaign(t, db, "camp-list-1")
	insertCampaign(t, db, "camp-list-2")

	got, err := repo.List(context.Background(), 100)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	seen := make(map[string]bool)
	for _, c := range got {
		seen[c.ID] = true
	}
	if !seen["camp-list-1"] || !seen["camp-list-2"] {
		t.Errorf("List missing inserted campaigns, got %d rows", len(got))
	}
}

package store_test

import (
	"context"
	"testing"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
	"github.com/mcrovella/fluxtwin/internal/domain"
)

func TestFVARoundTrip(t *testing.T) {
	db := testDB(t)
	repo := store.NewFVARepository(db)
	ctx := context.Background()

	camp := insertCampaign(t, db, "camp-fva")
	rows := []domain.FVARow{
		{ConditionID: "c00001", ObjectiveValue: 0.4, ReactionID: "ICL", Min: 1, Max: 2},
		{ConditionID: "c00000", ObjectiveValue: 0.2, ReactionID: "ACKr", Min: -3, Max: 3},
	}
	if err := repo.CreateBatch(ctx, camp.ID, rows); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	got, err := repo.ListByCampaign(ctx, camp.ID)
	if err != nil {
		t.Fatalf("ListByCampaign failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0].ConditionID != "c00000" || got[0].ReactionID != "ACKr" {
		t.Errorf("first row = %+v", got[0])
	}
	if got[1].Min != 1 || got[1].Max != 2 {
		t.Errorf("second row = %+v", got[1])
	}
}

func TestFVAEmptyBatch(t *testing.T) {
	db := testDB(t)
	if err := store.NewFVARepository(db).CreateBatch(context.Background(), "x", nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

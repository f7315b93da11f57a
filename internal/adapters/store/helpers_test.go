package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/mcrovella/fluxtwin/internal/adapters/store"
	"github.com/mcrovella/fluxtwin/internal/domain"
	"github.com/mcrovella/fluxtwin/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	ctx := context.Background()
	if err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertCampaign(t *testing.T, db *sql.DB, id string) *domain.Campaign {
	t.Helper()

	c := &domain.Campaign{
		ID:                id,
		Name:              "test-" + id,
		ModelPath:         "model.json",
		Samples:           10,
		Seed:              42,
		FractionOfOptimum: 0.9,
		ATPMMode:          "sampled",
		StartedAt:         time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.NewCampaignRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("Failed to insert campaign: %v", err)
	}
	return c
}

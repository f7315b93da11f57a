package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/mcrovella/fluxtwin/internal/app"
	"github.com/mcrovella/fluxtwin/internal/ctxlog"
	"github.com/mcrovella/fluxtwin/internal/database"
	adapterotel "github.com/mcrovella/fluxtwin/internal/adapters/otel"
	"github.com/mcrovella/fluxtwin/internal/ports"
)

// newContext builds the command context with a structured logger attached.
func newContext() context.Context {
	level := slog.LevelInfo
	if v := os.Getenv("FLUXTWIN_LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return ctxlog.WithLogger(context.Background(), logger)
}

// openDatabase connects using the process config.
func openDatabase() (*sql.DB, error) {
	cfg, err := app.New()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL, cfg.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// metricsExporter builds the OTEL exporter, degrading to a no-op when
// disabled or misconfigured.
func metricsExporter(ctx context.Context) ports.MetricsExporter {
	cfg := adapterotel.LoadConfig()
	if !cfg.Enabled {
		return adapterotel.NewNoOpExporter()
	}
	exp, err := adapterotel.NewExporter(ctx, cfg)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("metrics exporter disabled", "error", err)
		return adapterotel.NewNoOpExporter()
	}
	return exp
}

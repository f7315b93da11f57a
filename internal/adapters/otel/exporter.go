// Package otel exports campaign solve metrics to an OTEL collector over
// OTLP gRPC.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mcrovella/fluxtwin/internal/ports"
)

const (
	serviceName    = "fluxtwin"
	serviceVersion = "1.0.0"
)

// Exporter exports condition solve metrics to an OTEL Collector.
type Exporter struct {
	provider        *sdkmetric.MeterProvider
	meter           metric.Meter
	conditionsTotal metric.Int64Counter
	infeasibleTotal metric.Int64Counter
	solveDuration   metric.Float64Histogram
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	conditionsTotal, err := meter.Int64Counter(
		"fluxtwin_conditions_total",
		metric.WithDescription("Total conditions simulated"),
		metric.WithUnit("{condition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating conditions counter: %w", err)
	}

	infeasibleTotal, err := meter.Int64Counter(
		"fluxtwin_conditions_infeasible_total",
		metric.WithDescription("Conditions whose FBA solve was not optimal"),
		metric.WithUnit("{condition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating infeasible counter: %w", err)
	}

	solveDuration, err := meter.Float64Histogram(
		"fluxtwin_solve_duration_seconds",
		metric.WithDescription("Per-condition FBA+FVA solve duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &Exporter{
		provider:        provider,
		meter:           meter,
		conditionsTotal: conditionsTotal,
		infeasibleTotal: infeasibleTotal,
		solveDuration:   solveDuration,
	}, nil
}

// ExportConditionMetrics exports metrics for one simulated condition.
func (e *Exporter) ExportConditionMetrics(ctx context.Context, m *ports.ConditionMetrics) error {
	attrs := []attribute.KeyValue{
		attribute.String("campaign_id", m.CampaignID),
		attribute.String("status", m.Status),
	}
	if m.PrimaryRegime != "" {
		attrs = append(attrs, attribute.String("primary_regime", m.PrimaryRegime))
	}
	opt := metric.WithAttributes(attrs...)

	e.conditionsTotal.Add(ctx, 1, opt)
	if m.Status != "optimal" {
		e.infeasibleTotal.Add(ctx, 1, opt)
	}
	e.solveDuration.Record(ctx, m.SolveDuration.Seconds(), opt)
	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

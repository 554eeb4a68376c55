package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/amirphl/avax-blinks/config"
)

// NewResource describes this service for exported spans
func NewResource(cfg config.TracingConfig, deployment config.DeploymentConfig) *resource.Resource {
	r, _ := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", deployment.Version),
			attribute.String("environment", deployment.Environment),
		),
	)
	return r
}

// NewTracerProvider exports spans to w through the stdout exporter
func NewTracerProvider(cfg config.TracingConfig, deployment config.DeploymentConfig, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(NewResource(cfg, deployment)),
	), nil
}

// InitTracing installs the global tracer provider when tracing is enabled.
// The returned function flushes and stops it.
func InitTracing(cfg config.TracingConfig, deployment config.DeploymentConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	tp, err := NewTracerProvider(cfg, deployment, os.Stdout)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires solver spans and benchmark metrics into
// OpenTelemetry.
//
// Tracing and metrics are both off by default. A one-shot "knapsack run"
// then never dials a collector, and spans and instruments fall through to
// the global no-op providers. "knapsack serve" usually turns on the
// prometheus reader so /metrics has something to scrape.
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
// Environment overrides read by DefaultConfig:
//
//   - OTEL_TRACES_EXPORTER: otlp | stdout | none
//   - OTEL_METRICS_EXPORTER: prometheus | stdout | none
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector address, default localhost:4317
//   - KNAPSACK_ENV: deployment.environment attribute, default development
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

const (
	ExporterNone       = "none"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

var (
	ErrNilContext      = errors.New("context must not be nil")
	ErrUnknownExporter = errors.New("unknown exporter")
)

// Config selects exporters and the resource attributes stamped on every
// span and data point. An empty exporter name means none.
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`
	Environment    string `json:"environment" yaml:"environment"`

	TraceExporter  string `json:"trace_exporter" yaml:"trace_exporter" validate:"omitempty,oneof=otlp stdout none"`
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"omitempty,oneof=prometheus stdout none"`

	// OTLPEndpoint is host:port of the collector's gRPC receiver.
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`

	// OTLPInsecure dials the collector without TLS.
	OTLPInsecure bool `json:"otlp_insecure" yaml:"otlp_insecure"`
}

// DefaultConfig returns a config with both exporters off, overridden by
// the environment variables listed in the package doc.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "knapsack",
		ServiceVersion: "1.0.0",
		Environment:    envOr("KNAPSACK_ENV", "development"),
		TraceExporter:  envOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: envOr("OTEL_METRICS_EXPORTER", ExporterNone),
		OTLPEndpoint:   envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// spanExporters builds a span exporter per trace exporter name.
var spanExporters = map[string]func(context.Context, Config) (trace.SpanExporter, error){
	ExporterOTLP: func(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
		transport := otlptracegrpc.WithInsecure()
		if !cfg.OTLPInsecure {
			transport = otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), transport)
	},
	ExporterStdout: func(context.Context, Config) (trace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
	},
}

// metricReaders builds a metric reader per metric exporter name.
var metricReaders = map[string]func() (metric.Reader, error){
	ExporterPrometheus: func() (metric.Reader, error) {
		reader, err := promexporter.New()
		if err != nil {
			return nil, err
		}
		// promexporter registers with the default registry, which promhttp serves.
		h := promhttp.Handler()
		scrapeHandler.Store(&h)
		return reader, nil
	},
	ExporterStdout: func() (metric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint(), stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return nil, err
		}
		return metric.NewPeriodicReader(exp), nil
	},
}

var scrapeHandler atomic.Pointer[http.Handler]

// MetricsHandler returns the prometheus scrape handler, or nil when the
// prometheus reader has not been started.
func MetricsHandler() http.Handler {
	if h := scrapeHandler.Load(); h != nil {
		return *h
	}
	return nil
}

// Init installs global tracer and meter providers for cfg.
//
// Description:
//
//	Exporter names are checked before anything starts, so an unknown
//	name leaves the globals untouched. If a provider fails to start, the
//	ones already started are shut down before returning.
//
// Outputs:
//
//	shutdown - Flushes and stops the started providers. Always non-nil on success.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter error.
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	newSpans, err := lookup(spanExporters, cfg.TraceExporter)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	newReader, err := lookup(metricReaders, cfg.MetricExporter)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	var stops []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, stop := range stops {
			errs = append(errs, stop(ctx))
		}
		return errors.Join(errs...)
	}

	if newSpans != nil {
		exp, err := newSpans(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("start %s span exporter: %w", cfg.TraceExporter, err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(exp),
			trace.WithResource(res),
			trace.WithSampler(trace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
	}

	if newReader != nil {
		reader, err := newReader()
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("start %s metric reader: %w", cfg.MetricExporter, err)
		}
		mp := metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader))
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
	}

	return shutdown, nil
}

// lookup returns the constructor for name, nil for a disabled exporter.
func lookup[F any](table map[string]F, name string) (F, error) {
	var none F
	if name == "" || name == ExporterNone {
		return none, nil
	}
	fn, ok := table[name]
	if !ok {
		return none, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
	return fn, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

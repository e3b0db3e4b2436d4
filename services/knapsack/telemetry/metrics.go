// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// durationBuckets spans microsecond solves to multi-second tables.
var durationBuckets = []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1, 0.5, 1, 5, 30}

// Metrics contains the knapsack metrics.
//
// Description:
//
//	Counters and histograms for solves, benchmark samples and HTTP
//	requests. All names use the "knapsack_" prefix. Metrics satisfies
//	bench.Recorder.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// SolvesTotal counts solves by method and outcome.
	SolvesTotal metric.Int64Counter

	// SolveDuration records solve duration in seconds by method.
	SolveDuration metric.Float64Histogram

	// ItemsSelected records the selection size of successful solves.
	ItemsSelected metric.Int64Histogram

	// SamplesTotal counts timed benchmark samples by method.
	SamplesTotal metric.Int64Counter

	// SampleDuration records benchmark sample durations in seconds.
	SampleDuration metric.Float64Histogram

	// BenchmarksTotal counts completed or failed benchmarks.
	BenchmarksTotal metric.Int64Counter

	// HTTPRequestsTotal counts HTTP requests by route and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics registers every metric with meter.
//
// Outputs:
//
//	*Metrics - The metrics instance.
//	error - Non-nil if any registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.SolvesTotal, err = meter.Int64Counter(
		"knapsack_solves_total",
		metric.WithDescription("Total solver invocations"),
		metric.WithUnit("{solve}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create solves_total: %w", err)
	}

	m.SolveDuration, err = meter.Float64Histogram(
		"knapsack_solve_duration_seconds",
		metric.WithDescription("Solver invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create solve_duration: %w", err)
	}

	m.ItemsSelected, err = meter.Int64Histogram(
		"knapsack_items_selected",
		metric.WithDescription("Number of items in returned selections"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create items_selected: %w", err)
	}

	m.SamplesTotal, err = meter.Int64Counter(
		"knapsack_benchmark_samples_total",
		metric.WithDescription("Total timed benchmark samples"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create benchmark_samples_total: %w", err)
	}

	m.SampleDuration, err = meter.Float64Histogram(
		"knapsack_benchmark_sample_duration_seconds",
		metric.WithDescription("Benchmark sample duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create benchmark_sample_duration: %w", err)
	}

	m.BenchmarksTotal, err = meter.Int64Counter(
		"knapsack_benchmarks_total",
		metric.WithDescription("Total benchmarks by outcome"),
		metric.WithUnit("{benchmark}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create benchmarks_total: %w", err)
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"knapsack_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"knapsack_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	return m, nil
}

// RecordSolve records one solver invocation.
func (m *Metrics) RecordSolve(ctx context.Context, method knapsack.Method, d time.Duration, sol *knapsack.Solution, err error) {
	methodAttr := attribute.String("method", method.String())
	m.SolvesTotal.Add(ctx, 1, metric.WithAttributes(methodAttr, attribute.String("outcome", Outcome(err))))
	if err != nil {
		return
	}
	m.SolveDuration.Record(ctx, d.Seconds(), metric.WithAttributes(methodAttr))
	if sol != nil {
		m.ItemsSelected.Record(ctx, int64(len(sol.Items)), metric.WithAttributes(methodAttr))
	}
}

// RecordSample records one timed benchmark sample.
func (m *Metrics) RecordSample(ctx context.Context, method knapsack.Method, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("method", method.String()))
	m.SamplesTotal.Add(ctx, 1, attrs)
	m.SampleDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordBenchmark records the outcome of one benchmark.
func (m *Metrics) RecordBenchmark(ctx context.Context, method knapsack.Method, err error) {
	m.BenchmarksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method.String()),
		attribute.String("outcome", Outcome(err)),
	))
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, knapsack.ErrMalformedInstance):
		return "malformed_instance"
	case errors.Is(err, knapsack.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, knapsack.ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// RecordError records err on span and marks it failed. Nil span or err is
// a no-op.
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	opts := make([]trace.EventOption, 0, 1)
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the knapsack solvers and benchmark runner over HTTP
// with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/archive"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
	"github.com/AleutianAI/knapsack/services/knapsack/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "1.0.0"

const tracerName = "knapsack.api"

var (
	// ErrTooManyItems indicates a request instance above ServiceConfig.MaxItems.
	ErrTooManyItems = errors.New("too many items")

	// ErrNoArchive indicates a baseline operation without a configured archive.
	ErrNoArchive = errors.New("archive not configured")
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Limits bounds every solve.
	Limits knapsack.Limits

	// Bench is the base benchmark configuration; requests may override
	// samples, warmup, resamples, confidence level and seed.
	Bench bench.Config

	// MaxItems rejects larger request instances. Zero means unlimited.
	MaxItems int
}

// DefaultServiceConfig returns defaults suited to a shared server.
func DefaultServiceConfig() ServiceConfig {
	cfg := bench.DefaultConfig()
	cfg.Resamples = 10_000
	return ServiceConfig{
		Bench:    cfg,
		MaxItems: 100_000,
	}
}

// Service implements the HTTP operations independently of gin.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg     ServiceConfig
	runner  *bench.Runner
	archive *archive.Store
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithArchive enables run archiving and baseline comparison.
func WithArchive(store *archive.Store) ServiceOption {
	return func(s *Service) { s.archive = store }
}

// WithMetrics records solves, samples and benchmarks.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(cfg ServiceConfig, opts ...ServiceOption) *Service {
	s := &Service{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.runner = bench.NewRunner(cfg.Bench)
	s.runner.SetLogger(s.logger)
	if s.metrics != nil {
		s.runner.SetRecorder(s.metrics)
	}
	return s
}

// HasArchive reports whether baselines are available.
func (s *Service) HasArchive() bool {
	return s.archive != nil
}

// prepare validates the shared part of solve and benchmark requests.
func (s *Service) prepare(req *SolveRequest) (*knapsack.Instance, knapsack.Solver, error) {
	if s.cfg.MaxItems > 0 && len(req.Items) > s.cfg.MaxItems {
		return nil, nil, fmt.Errorf("%d items, limit %d: %w", len(req.Items), s.cfg.MaxItems, ErrTooManyItems)
	}
	method, err := knapsack.ParseMethod(req.Method)
	if err != nil {
		return nil, nil, err
	}
	inst, err := req.instance()
	if err != nil {
		return nil, nil, err
	}
	solver, err := knapsack.NewSolver(method, knapsack.Options{Granularity: req.granularity(), Limits: s.cfg.Limits})
	if err != nil {
		return nil, nil, err
	}
	return inst, solver, nil
}

// Solve runs one solve.
//
// Outputs:
//
//	*SolveResponse - The selection with its value, weight and duration.
//	error - ErrTooManyItems or a wrapped knapsack sentinel.
func (s *Service) Solve(ctx context.Context, req *SolveRequest) (*SolveResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "api.Service.Solve",
		trace.WithAttributes(
			attribute.String("knapsack.method", req.Method),
			attribute.Int("knapsack.items", len(req.Items)),
		),
	)
	defer span.End()

	inst, solver, err := s.prepare(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	sol, err := solver.Solve(inst)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordSolve(ctx, solver.Method(), elapsed, sol, err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("knapsack.total_value", int64(sol.TotalValue)))
	span.SetStatus(codes.Ok, "solved")
	return &SolveResponse{
		Method:      solver.Method(),
		Items:       sol.Items,
		TotalValue:  sol.TotalValue,
		TotalWeight: sol.TotalWeight(inst),
		DurationNs:  elapsed.Nanoseconds(),
	}, nil
}

// Benchmark runs a benchmark and optionally compares it with, or stores
// it as, a baseline.
//
// Outputs:
//
//	*BenchmarkResponse - The report plus comparison when requested.
//	error - ErrNoArchive, archive.ErrNotFound, or a bench or knapsack error.
func (s *Service) Benchmark(ctx context.Context, req *BenchmarkRequest) (*BenchmarkResponse, error) {
	if (req.Baseline != "" || req.SaveBaseline != "") && s.archive == nil {
		return nil, ErrNoArchive
	}
	inst, solver, err := s.prepare(&req.SolveRequest)
	if err != nil {
		return nil, err
	}

	opts := req.runOptions()
	cfg := s.runner.Config()
	for _, opt := range opts {
		opt(&cfg)
	}

	report, err := s.runner.Run(ctx, solver, inst, opts...)
	if s.metrics != nil {
		s.metrics.RecordBenchmark(ctx, solver.Method(), err)
	}
	if err != nil {
		return nil, err
	}

	resp := &BenchmarkResponse{Method: solver.Method(), Report: report}
	if s.archive == nil {
		return resp, nil
	}

	key := archive.NewKey(inst, solver.Method(), req.granularity())
	if req.Baseline != "" {
		cmp, _, err := s.archive.Compare(ctx, key, req.Baseline, report, cfg)
		if err != nil {
			return nil, err
		}
		resp.Comparison = cmp
	}

	rec := archive.NewRecord(key, report)
	if err := s.archive.Save(ctx, rec); err != nil {
		return nil, err
	}
	resp.RunID = rec.RunID
	if req.SaveBaseline != "" {
		if err := s.archive.SaveBaseline(ctx, req.SaveBaseline, rec); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "knapsack.bench"

// -----------------------------------------------------------------------------
// Runner Options
// -----------------------------------------------------------------------------

// RunOption configures a single benchmark run. Options are applied in
// order on top of the runner's base Config.
type RunOption func(*Config)

// WithSamples sets the number of timed invocations. Non-positive values
// are ignored.
func WithSamples(n int) RunOption {
	return func(c *Config) {
		if n > 0 {
			c.Samples = n
		}
	}
}

// WithWarmup sets the number of untimed invocations. Negative values are
// ignored.
func WithWarmup(n int) RunOption {
	return func(c *Config) {
		if n >= 0 {
			c.Warmup = n
		}
	}
}

// WithResamples sets the bootstrap resample count. Non-positive values are
// ignored.
func WithResamples(n int) RunOption {
	return func(c *Config) {
		if n > 0 {
			c.Resamples = n
		}
	}
}

// WithConfidenceLevel sets the interval coverage.
func WithConfidenceLevel(level float64) RunOption {
	return func(c *Config) {
		c.ConfidenceLevel = level
	}
}

// WithSeed sets the bootstrap seed.
func WithSeed(seed uint64) RunOption {
	return func(c *Config) {
		c.Seed = seed
	}
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Recorder receives every timed sample. telemetry.Metrics implements it.
type Recorder interface {
	RecordSample(ctx context.Context, method knapsack.Method, d time.Duration)
}

// Runner times repeated solver invocations and summarizes them.
//
// Description:
//
//	Runner executes warmup and sampling strictly sequentially on the
//	calling goroutine. It holds no per-run state, so one Runner may serve
//	concurrent benchmarks of different solvers or instances.
//
// Thread Safety: Safe for concurrent use once configured.
type Runner struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
}

// NewRunner creates a runner with base configuration cfg.
//
// Description:
//
//	The runner logs to slog.Default(); use SetLogger to override.
//	cfg is validated per run, after RunOptions are applied.
//
// Outputs:
//   - *Runner: The new runner. Never nil.
func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// SetLogger replaces the runner's logger. Nil values are ignored.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetRecorder installs a sample recorder. Nil disables recording.
func (r *Runner) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Config returns the runner's base configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run benchmarks solver on inst.
//
// Description:
//
//	Runs cfg.Warmup untimed invocations followed by cfg.Samples timed ones,
//	each measured with the monotonic clock, then analyzes the samples with
//	a generator seeded from cfg.Seed. The context is checked between
//	invocations; a solve in progress is never interrupted. inst is only
//	read.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - solver: The solver to time. Must not be nil.
//   - inst: The instance to solve on every invocation.
//   - opts: Per-run overrides of the base configuration.
//
// Outputs:
//   - *Report: Estimates and raw samples. Never nil on success.
//   - error: Wraps ErrInvalidConfig, ctx.Err(), or ErrBenchmarkFailed
//     together with the first solver error.
//
// Thread Safety: Safe for concurrent use.
func (r *Runner) Run(ctx context.Context, solver knapsack.Solver, inst *knapsack.Instance, opts ...RunOption) (*Report, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}
	if solver == nil {
		return nil, fmt.Errorf("nil solver: %w", ErrInvalidConfig)
	}

	cfg := r.cfg
	for _, opt := range opts {
		opt(&cfg)
	}

	method := solver.Method()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "bench.Runner.Run",
		trace.WithAttributes(
			attribute.String("knapsack.method", method.String()),
			attribute.Int("bench.samples", cfg.Samples),
			attribute.Int("bench.warmup", cfg.Warmup),
		),
	)
	defer span.End()

	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid config")
		return nil, err
	}
	if err := inst.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid instance")
		return nil, err
	}
	span.SetAttributes(attribute.Int("knapsack.items", inst.Len()))

	if err := r.runWarmup(ctx, solver, inst, cfg.Warmup); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "warmup failed")
		return nil, fmt.Errorf("running warmup: %w", err)
	}

	samples, err := r.runMeasurement(ctx, solver, inst, cfg.Samples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "measurement failed")
		return nil, fmt.Errorf("running measurement: %w", err)
	}

	report, err := Analyze(samples, cfg.Stats(), NewRand(cfg.Seed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, fmt.Errorf("analyzing samples: %w", err)
	}

	r.logger.Info("benchmark completed",
		slog.String("method", method.String()),
		slog.Int("items", inst.Len()),
		slog.Int("samples", len(samples)),
		slog.Float64("mean_ns", report.Mean.PointEstimate),
		slog.Float64("median_ns", report.Median.PointEstimate),
		slog.Float64("std_dev_ns", report.StdDev.PointEstimate),
	)
	span.SetAttributes(
		attribute.Float64("bench.result.mean_ns", report.Mean.PointEstimate),
		attribute.Float64("bench.result.median_ns", report.Median.PointEstimate),
	)
	span.SetStatus(codes.Ok, "benchmark completed")
	return report, nil
}

// runWarmup executes untimed invocations.
func (r *Runner) runWarmup(ctx context.Context, solver knapsack.Solver, inst *knapsack.Instance, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := solver.Solve(inst); err != nil {
			return fmt.Errorf("warmup %d: %w: %w", i, ErrBenchmarkFailed, err)
		}
	}
	return nil
}

// runMeasurement executes timed invocations and returns their durations.
func (r *Runner) runMeasurement(ctx context.Context, solver knapsack.Solver, inst *knapsack.Instance, n int) ([]time.Duration, error) {
	samples := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := timeSolve(solver, inst)
		if err != nil {
			r.logger.Debug("solver failed during sampling",
				slog.String("method", solver.Method().String()),
				slog.Int("sample", i),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("sample %d: %w: %w", i, ErrBenchmarkFailed, err)
		}
		samples = append(samples, d)
		if r.recorder != nil {
			r.recorder.RecordSample(ctx, solver.Method(), d)
		}
	}
	return samples, nil
}

func timeSolve(solver knapsack.Solver, inst *knapsack.Instance) (time.Duration, error) {
	start := time.Now()
	_, err := solver.Solve(inst)
	return time.Since(start), err
}

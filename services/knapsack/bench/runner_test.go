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
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSolver fails on call failAt (1-based) when failAt > 0.
type countingSolver struct {
	calls  int
	failAt int
	err    error
}

func (s *countingSolver) Method() knapsack.Method { return knapsack.MethodDP }

func (s *countingSolver) Solve(inst *knapsack.Instance) (*knapsack.Solution, error) {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return nil, s.err
	}
	return &knapsack.Solution{Items: []int{}}, nil
}

type sampleRecorder struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (r *sampleRecorder) RecordSample(_ context.Context, _ knapsack.Method, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, d)
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Samples = 5
	cfg.Warmup = 2
	cfg.Resamples = 200
	return cfg
}

func testInstance(t *testing.T) *knapsack.Instance {
	t.Helper()
	inst, err := knapsack.NewInstance(10, []uint32{60, 100, 120}, []uint32{1, 2, 3})
	require.NoError(t, err)
	return inst
}

func TestRunner_Run(t *testing.T) {
	solver := &countingSolver{}
	rec := &sampleRecorder{}
	runner := NewRunner(smallConfig())
	runner.SetRecorder(rec)

	report, err := runner.Run(context.Background(), solver, testInstance(t))
	require.NoError(t, err)

	assert.Equal(t, 7, solver.calls)
	assert.Len(t, report.Samples, 5)
	assert.Equal(t, report.Samples, rec.samples)
	assert.GreaterOrEqual(t, report.Mean.PointEstimate, 0.0)
}

func TestRunner_Options(t *testing.T) {
	solver := &countingSolver{}
	runner := NewRunner(smallConfig())

	report, err := runner.Run(context.Background(), solver, testInstance(t),
		WithSamples(3), WithWarmup(0), WithResamples(50), WithSeed(11), WithConfidenceLevel(0.9))
	require.NoError(t, err)

	assert.Equal(t, 3, solver.calls)
	assert.Len(t, report.Samples, 3)
	assert.Equal(t, 0.9, report.Mean.ConfidenceInterval.ConfidenceLevel)
	assert.Equal(t, 5, runner.Config().Samples, "options must not change the base config")
}

func TestRunner_SolverErrorAborts(t *testing.T) {
	tests := []struct {
		name   string
		failAt int
	}{
		{"during warmup", 1},
		{"during sampling", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver := &countingSolver{failAt: tt.failAt, err: knapsack.ErrResourceExhausted}
			rec := &sampleRecorder{}
			runner := NewRunner(smallConfig())
			runner.SetRecorder(rec)

			report, err := runner.Run(context.Background(), solver, testInstance(t))
			require.Error(t, err)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, ErrBenchmarkFailed)
			assert.ErrorIs(t, err, knapsack.ErrResourceExhausted)
			assert.Equal(t, tt.failAt, solver.calls, "no invocation after the failure")
		})
	}
}

func TestRunner_InvalidConfig(t *testing.T) {
	solver := &countingSolver{}
	runner := NewRunner(Config{Samples: 0, Resamples: 10, ConfidenceLevel: 0.95})

	_, err := runner.Run(context.Background(), solver, testInstance(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, solver.calls)

	_, err = NewRunner(smallConfig()).Run(context.Background(), nil, testInstance(t))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunner_MalformedInstance(t *testing.T) {
	inst := &knapsack.Instance{Capacity: 5, Items: []knapsack.Item{{Index: 3, Weight: 1, Value: 1}}}
	_, err := NewRunner(smallConfig()).Run(context.Background(), &countingSolver{}, inst)
	assert.ErrorIs(t, err, knapsack.ErrMalformedInstance)
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	solver := &countingSolver{}
	_, err := NewRunner(smallConfig()).Run(ctx, solver, testInstance(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, solver.calls)
}

func TestRunner_RealSolverLeavesInstanceUntouched(t *testing.T) {
	inst := testInstance(t)
	before := *inst
	before.Items = append([]knapsack.Item(nil), inst.Items...)

	report, err := NewRunner(smallConfig()).Run(context.Background(), knapsack.NewDPSolver(knapsack.Limits{}), inst)
	require.NoError(t, err)
	assert.Len(t, report.Samples, 5)
	assert.Equal(t, before, *inst)
}

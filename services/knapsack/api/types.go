// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
)

// ItemRequest is one item of a request instance. Pointers distinguish a
// missing field from an explicit zero.
type ItemRequest struct {
	Value  *uint32 `json:"value" binding:"required"`
	Weight *uint32 `json:"weight" binding:"required"`
}

// SolveRequest is the body of POST /v1/knapsack/solve.
type SolveRequest struct {
	// Method is one of dp, bkt, fptas, minknap.
	Method string `json:"method" binding:"required"`

	// Granularity is the FPTAS K. Default: 1.
	Granularity int `json:"granularity" binding:"omitempty,min=1"`

	Capacity *uint64       `json:"capacity" binding:"required"`
	Items    []ItemRequest `json:"items" binding:"dive"`
}

func (r *SolveRequest) granularity() int {
	if r.Granularity == 0 {
		return knapsack.DefaultGranularity
	}
	return r.Granularity
}

// instance converts the request items to an Instance.
func (r *SolveRequest) instance() (*knapsack.Instance, error) {
	values := make([]uint32, len(r.Items))
	weights := make([]uint32, len(r.Items))
	for i, it := range r.Items {
		values[i] = *it.Value
		weights[i] = *it.Weight
	}
	return knapsack.NewInstance(*r.Capacity, values, weights)
}

// BenchmarkRequest is the body of POST /v1/knapsack/benchmark.
type BenchmarkRequest struct {
	SolveRequest

	Samples         int     `json:"samples" binding:"omitempty,min=1,max=10000"`
	Warmup          *int    `json:"warmup" binding:"omitempty,min=0,max=1000"`
	Resamples       int     `json:"resamples" binding:"omitempty,min=1,max=1000000"`
	ConfidenceLevel float64 `json:"confidence_level" binding:"omitempty,gt=0,lt=1"`
	Seed            *uint64 `json:"seed"`

	// Baseline names a stored baseline to compare against.
	Baseline string `json:"baseline" binding:"omitempty,excludesall=/"`

	// SaveBaseline stores this run under the given baseline name.
	SaveBaseline string `json:"save_baseline" binding:"omitempty,excludesall=/"`
}

// runOptions maps the fields that were set onto benchmark options. Omitted
// fields keep the service's configured values.
func (r *BenchmarkRequest) runOptions() []bench.RunOption {
	opts := []bench.RunOption{
		bench.WithSamples(r.Samples),
		bench.WithResamples(r.Resamples),
	}
	if r.Warmup != nil {
		opts = append(opts, bench.WithWarmup(*r.Warmup))
	}
	if r.ConfidenceLevel != 0 {
		opts = append(opts, bench.WithConfidenceLevel(r.ConfidenceLevel))
	}
	if r.Seed != nil {
		opts = append(opts, bench.WithSeed(*r.Seed))
	}
	return opts
}

// SolveResponse is returned by POST /v1/knapsack/solve.
type SolveResponse struct {
	Method      knapsack.Method `json:"method"`
	Items       []int           `json:"items"`
	TotalValue  uint64          `json:"total_value"`
	TotalWeight uint64          `json:"total_weight"`
	DurationNs  int64           `json:"duration_ns"`
}

// BenchmarkResponse is returned by POST /v1/knapsack/benchmark.
type BenchmarkResponse struct {
	Method     knapsack.Method   `json:"method"`
	RunID      string            `json:"run_id,omitempty"`
	Report     *bench.Report     `json:"report"`
	Comparison *bench.Comparison `json:"comparison,omitempty"`
}

// MethodInfo describes one solver.
type MethodInfo struct {
	Name  knapsack.Method `json:"name"`
	Exact bool            `json:"exact"`
}

// MethodsResponse is returned by GET /v1/knapsack/methods.
type MethodsResponse struct {
	Methods []MethodInfo `json:"methods"`
}

// HealthResponse is returned by GET /v1/knapsack/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Archive bool   `json:"archive"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

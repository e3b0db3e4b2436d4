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
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/archive"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Handlers contains the HTTP handlers.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	svc     *Service
	limiter *rate.Limiter
}

// NewHandlers creates handlers for svc. benchLimiter throttles benchmark
// requests; nil means unlimited.
func NewHandlers(svc *Service, benchLimiter *rate.Limiter) *Handlers {
	return &Handlers{svc: svc, limiter: benchLimiter}
}

// HandleSolve handles POST /v1/knapsack/solve.
//
// Description:
//
//	Solves the request instance with the requested method and returns the
//	selected item indices with their total value and weight.
//
// Response:
//
//	200: SolveResponse
//	400: Invalid body, unknown method, malformed instance
//	413: Too many items
//	422: Resource limits exceeded
func (h *Handlers) HandleSolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSolve")

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.svc.Solve(c.Request.Context(), &req)
	if err != nil {
		writeError(c, logger, "Solve failed", err)
		return
	}

	logger.Info("Solved",
		"method", resp.Method,
		"items", len(req.Items),
		"total_value", resp.TotalValue,
		"duration_ns", resp.DurationNs)
	c.JSON(http.StatusOK, resp)
}

// HandleBenchmark handles POST /v1/knapsack/benchmark.
//
// Description:
//
//	Benchmarks the requested method on the request instance. Requests are
//	rate limited because each one occupies a CPU for the whole run.
//
// Response:
//
//	200: BenchmarkResponse
//	400: Invalid body or configuration
//	404: Unknown baseline
//	429: Rate limited
//	503: Baseline requested without an archive
func (h *Handlers) HandleBenchmark(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBenchmark")

	if h.limiter != nil && !h.limiter.Allow() {
		logger.Warn("Benchmark rate limited")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many benchmark requests",
			Code:  "RATE_LIMITED",
		})
		return
	}

	var req BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.svc.Benchmark(c.Request.Context(), &req)
	if err != nil {
		writeError(c, logger, "Benchmark failed", err)
		return
	}

	logger.Info("Benchmark completed",
		"method", resp.Method,
		"run_id", resp.RunID,
		"mean_ns", resp.Report.Mean.PointEstimate)
	c.JSON(http.StatusOK, resp)
}

// HandleMethods handles GET /v1/knapsack/methods.
func (h *Handlers) HandleMethods(c *gin.Context) {
	methods := knapsack.Methods()
	resp := MethodsResponse{Methods: make([]MethodInfo, len(methods))}
	for i, m := range methods {
		resp.Methods[i] = MethodInfo{Name: m, Exact: m.Exact()}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/knapsack/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Archive: h.svc.HasArchive(),
	})
}

// writeError maps service errors to status codes.
func writeError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	statusCode := http.StatusInternalServerError
	errCode := "INTERNAL"

	switch {
	case errors.Is(err, ErrTooManyItems):
		statusCode = http.StatusRequestEntityTooLarge
		errCode = "TOO_MANY_ITEMS"
	case errors.Is(err, knapsack.ErrMalformedInstance):
		statusCode = http.StatusBadRequest
		errCode = "MALFORMED_INSTANCE"
	case errors.Is(err, knapsack.ErrInvalidConfiguration), errors.Is(err, bench.ErrInvalidConfig):
		statusCode = http.StatusBadRequest
		errCode = "INVALID_CONFIGURATION"
	case errors.Is(err, knapsack.ErrResourceExhausted):
		statusCode = http.StatusUnprocessableEntity
		errCode = "RESOURCE_EXHAUSTED"
	case errors.Is(err, archive.ErrNotFound):
		statusCode = http.StatusNotFound
		errCode = "BASELINE_NOT_FOUND"
	case errors.Is(err, archive.ErrInvalidName):
		statusCode = http.StatusBadRequest
		errCode = "INVALID_BASELINE_NAME"
	case errors.Is(err, ErrNoArchive):
		statusCode = http.StatusServiceUnavailable
		errCode = "ARCHIVE_DISABLED"
	case errors.Is(err, bench.ErrBenchmarkFailed):
		errCode = "BENCHMARK_FAILED"
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	} else {
		logger.Warn(msg, "error", err)
	}
	c.JSON(statusCode, ErrorResponse{
		Error: err.Error(),
		Code:  errCode,
	})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

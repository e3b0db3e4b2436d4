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
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNoSamples indicates that no samples were collected or supplied.
	ErrNoSamples = errors.New("no samples collected")

	// ErrInvalidConfig indicates an invalid benchmark configuration.
	ErrInvalidConfig = errors.New("invalid benchmark configuration")

	// ErrBenchmarkFailed indicates that a solver invocation failed during
	// warmup or sampling. The solver error is wrapped alongside it.
	ErrBenchmarkFailed = errors.New("benchmark failed")

	// ErrZeroBaseline indicates a comparison against a baseline whose mean
	// duration is zero, for which a relative change is undefined.
	ErrZeroBaseline = errors.New("baseline mean is zero")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config holds benchmark configuration.
//
// Description:
//
//	Config controls the number of untimed warmup invocations, the number of
//	timed samples, and the bootstrap used to turn samples into estimates.
//	Use DefaultConfig() and override fields as needed.
//
// Thread Safety: Safe for concurrent read access after initialization.
type Config struct {
	// Samples is the number of timed solver invocations.
	// Default: 100
	Samples int `json:"samples" yaml:"samples"`

	// Warmup is the number of untimed invocations before sampling.
	// Default: 10
	Warmup int `json:"warmup" yaml:"warmup"`

	// Resamples is the number of bootstrap resamples per metric.
	// Default: 100000
	Resamples int `json:"resamples" yaml:"resamples"`

	// ConfidenceLevel is the two-sided interval coverage, in (0, 1).
	// Default: 0.95
	ConfidenceLevel float64 `json:"confidence_level" yaml:"confidence_level"`

	// Seed seeds the bootstrap generator.
	// Default: 1
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultConfig returns a configuration with default values.
//
// Outputs:
//   - Config: Configuration with default values.
func DefaultConfig() Config {
	return Config{
		Samples:         100,
		Warmup:          10,
		Resamples:       100_000,
		ConfidenceLevel: 0.95,
		Seed:            1,
	}
}

// Validate checks that the configuration is usable.
//
// Outputs:
//   - error: Wraps ErrInvalidConfig naming the offending field.
func (c Config) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d: %w", c.Samples, ErrInvalidConfig)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup must be non-negative, got %d: %w", c.Warmup, ErrInvalidConfig)
	}
	return c.Stats().Validate()
}

// Stats returns the statistics part of the configuration.
func (c Config) Stats() StatsConfig {
	return StatsConfig{Resamples: c.Resamples, ConfidenceLevel: c.ConfidenceLevel}
}

// StatsConfig controls the bootstrap.
type StatsConfig struct {
	// Resamples is the number of bootstrap resamples per metric.
	Resamples int

	// ConfidenceLevel is the two-sided interval coverage, in (0, 1).
	ConfidenceLevel float64
}

// Validate checks that the bootstrap parameters are usable.
func (c StatsConfig) Validate() error {
	if c.Resamples <= 0 {
		return fmt.Errorf("resamples must be positive, got %d: %w", c.Resamples, ErrInvalidConfig)
	}
	if !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1) {
		return fmt.Errorf("confidence level must be in (0, 1), got %v: %w", c.ConfidenceLevel, ErrInvalidConfig)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// ConfidenceInterval is a bootstrap percentile interval in nanoseconds.
type ConfidenceInterval struct {
	// ConfidenceLevel is the requested coverage, e.g. 0.95.
	ConfidenceLevel float64 `json:"confidence_level"`

	// LowerBound is the (1-level)/2 percentile of the bootstrap statistics.
	LowerBound float64 `json:"lower_bound"`

	// UpperBound is the (1+level)/2 percentile of the bootstrap statistics.
	UpperBound float64 `json:"upper_bound"`
}

// Contains returns true if the interval contains v.
func (ci ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.LowerBound && v <= ci.UpperBound
}

// Width returns the interval width.
func (ci ConfidenceInterval) Width() float64 {
	return ci.UpperBound - ci.LowerBound
}

// Estimate is a point estimate of one statistic with its bootstrap
// uncertainty. Durations are in nanoseconds.
type Estimate struct {
	// PointEstimate is the statistic computed on the raw samples.
	PointEstimate float64 `json:"point_estimate"`

	// StandardError is the standard deviation of the bootstrap statistics.
	StandardError float64 `json:"standard_error"`

	// ConfidenceInterval bounds the statistic.
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
}

// Report summarizes the running-time distribution of one benchmark.
//
// Description:
//
//	Report carries mean, median and standard deviation estimates computed
//	from the same samples. Samples holds the raw timings in collection
//	order; it is not part of the JSON document.
//
// Thread Safety: Safe for concurrent read access after creation.
type Report struct {
	Mean   Estimate `json:"mean"`
	Median Estimate `json:"median"`
	StdDev Estimate `json:"std_dev"`

	Samples []time.Duration `json:"-"`
}

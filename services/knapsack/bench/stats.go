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
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// pcgStream is the fixed PCG stream selector; the seed picks the state.
const pcgStream = 0x9e3779b97f4a7c15

// NewRand returns the bootstrap generator for seed.
//
// Thread Safety: The returned generator is not safe for concurrent use.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// statistic reduces a sample to one number. It may reorder xs.
type statistic func(xs []float64) float64

func meanOf(xs []float64) float64 {
	return stat.Mean(xs, nil)
}

// medianOf interpolates between the two middle order statistics.
func medianOf(xs []float64) float64 {
	slices.Sort(xs)
	return percentile(xs, 0.5)
}

// stdDevOf uses the n-1 denominator and is 0 below two samples.
func stdDevOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// Analyze turns duration samples into mean, median and standard deviation
// estimates.
//
// Description:
//
//	Point estimates come from the raw samples. For each statistic
//	independently, cfg.Resamples resamples of the same size are drawn with
//	replacement from rng; the standard error is the standard deviation of
//	the resampled statistics and the interval bounds are their linearly
//	interpolated (1-c)/2 and (1+c)/2 percentiles.
//
// Inputs:
//   - samples: Durations in collection order. Must not be empty.
//   - cfg: Bootstrap parameters.
//   - rng: Randomness source. Must not be nil.
//
// Outputs:
//   - *Report: Estimates in nanoseconds with Samples set to a copy of samples.
//   - error: ErrNoSamples or a wrapped ErrInvalidConfig.
//
// Thread Safety: Safe for concurrent use with distinct rng values.
func Analyze(samples []time.Duration, cfg StatsConfig, rng *rand.Rand) (*Report, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil random source: %w", ErrInvalidConfig)
	}

	xs := nanos(samples)
	return &Report{
		Mean:    estimate(xs, meanOf, cfg, rng),
		Median:  estimate(xs, medianOf, cfg, rng),
		StdDev:  estimate(xs, stdDevOf, cfg, rng),
		Samples: slices.Clone(samples),
	}, nil
}

// estimate computes fn on xs and bootstraps it.
func estimate(xs []float64, fn statistic, cfg StatsConfig, rng *rand.Rand) Estimate {
	point := fn(slices.Clone(xs))

	boot := bootstrap(xs, fn, cfg.Resamples, rng)
	slices.Sort(boot)

	alpha := (1 - cfg.ConfidenceLevel) / 2
	return Estimate{
		PointEstimate: point,
		StandardError: stdDevOf(slices.Clone(boot)),
		ConfidenceInterval: ConfidenceInterval{
			ConfidenceLevel: cfg.ConfidenceLevel,
			LowerBound:      percentile(boot, alpha),
			UpperBound:      percentile(boot, 1-alpha),
		},
	}
}

// bootstrap returns fn evaluated on n resamples of xs.
func bootstrap(xs []float64, fn statistic, n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	buf := make([]float64, len(xs))
	for i := range out {
		resample(buf, xs, rng)
		out[i] = fn(buf)
	}
	return out
}

// resample fills dst with draws from src with replacement.
func resample(dst, src []float64, rng *rand.Rand) {
	for i := range dst {
		dst[i] = src[rng.IntN(len(src))]
	}
}

// percentile returns the p-th quantile of sorted using linear
// interpolation between closest ranks. p is in [0, 1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	if sorted[lo] == sorted[hi] {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func nanos(samples []time.Duration) []float64 {
	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s.Nanoseconds())
	}
	return xs
}

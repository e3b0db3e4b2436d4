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
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultNoiseThreshold is the relative change of the mean below which a
// significant difference is still reported as noise.
const DefaultNoiseThreshold = 0.01

// Verdict classifies a comparison against a baseline.
type Verdict string

const (
	VerdictImproved  Verdict = "improved"
	VerdictRegressed Verdict = "regressed"
	VerdictNoChange  Verdict = "no change"
	VerdictNoise     Verdict = "within noise"
)

// Comparison is the outcome of comparing current samples to a baseline.
type Comparison struct {
	// Change is the relative change of the mean, (current-base)/base.
	Change Estimate `json:"change"`

	// TStatistic is Welch's t for current minus baseline.
	TStatistic float64 `json:"t_statistic"`

	// DegreesOfFreedom is the Welch-Satterthwaite df.
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`

	// PValue is the two-tailed p-value.
	PValue float64 `json:"p_value"`

	// Significant is true if PValue < 1-ConfidenceLevel.
	Significant bool `json:"significant"`

	Verdict Verdict `json:"verdict"`
}

// Compare estimates how the mean running time changed from baseline to
// current.
//
// Description:
//
//	The relative change of the mean is bootstrapped by resampling both
//	sets independently. Significance comes from Welch's t-test with the
//	p-value taken from the Student-t distribution. A significant change
//	whose interval lies entirely beyond noise is an improvement (faster)
//	or a regression (slower).
//
// Inputs:
//   - baseline: Previously recorded samples. At least 2.
//   - current: New samples. At least 2.
//   - cfg: Bootstrap parameters; 1-ConfidenceLevel is the significance level.
//   - noise: Relative change treated as noise, e.g. DefaultNoiseThreshold.
//   - rng: Randomness source. Must not be nil.
//
// Outputs:
//   - *Comparison: The change estimate and test result.
//   - error: ErrNoSamples, ErrZeroBaseline or a wrapped ErrInvalidConfig.
//
// Thread Safety: Safe for concurrent use with distinct rng values.
func Compare(baseline, current []time.Duration, cfg StatsConfig, noise float64, rng *rand.Rand) (*Comparison, error) {
	if len(baseline) < 2 || len(current) < 2 {
		return nil, fmt.Errorf("need at least 2 samples per side, got %d and %d: %w",
			len(baseline), len(current), ErrNoSamples)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil random source: %w", ErrInvalidConfig)
	}
	if noise < 0 {
		return nil, fmt.Errorf("noise threshold must be non-negative, got %v: %w", noise, ErrInvalidConfig)
	}

	base := nanos(baseline)
	cur := nanos(current)
	baseMean := meanOf(base)
	if baseMean == 0 {
		return nil, ErrZeroBaseline
	}

	cmp := &Comparison{}
	cmp.Change = changeEstimate(base, cur, cfg, rng)
	cmp.TStatistic, cmp.DegreesOfFreedom, cmp.PValue = welch(cur, base)
	cmp.Significant = cmp.PValue < 1-cfg.ConfidenceLevel
	cmp.Verdict = verdict(cmp, noise)
	return cmp, nil
}

func changeEstimate(base, cur []float64, cfg StatsConfig, rng *rand.Rand) Estimate {
	point := meanOf(cur)/meanOf(base) - 1

	boot := make([]float64, 0, cfg.Resamples)
	bb := make([]float64, len(base))
	cb := make([]float64, len(cur))
	for i := 0; i < cfg.Resamples; i++ {
		resample(bb, base, rng)
		resample(cb, cur, rng)
		m := meanOf(bb)
		if m == 0 {
			continue
		}
		boot = append(boot, meanOf(cb)/m-1)
	}
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

// welch returns t, df and the two-tailed p-value for mean(a)-mean(b).
// Identical constant sets give t=0, p=1. Distinct constant sets give p=0
// and t clamped to ±math.MaxFloat64 so the result stays JSON-encodable.
func welch(a, b []float64) (float64, float64, float64) {
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	sa, sb := va/na, vb/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		if ma == mb {
			return 0, na + nb - 2, 1
		}
		return math.Copysign(math.MaxFloat64, ma-mb), na + nb - 2, 0
	}

	t := (ma - mb) / se
	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	return t, df, math.Min(p, 1)
}

func verdict(c *Comparison, noise float64) Verdict {
	if !c.Significant {
		return VerdictNoChange
	}
	ci := c.Change.ConfidenceInterval
	switch {
	case ci.UpperBound < -noise:
		return VerdictImproved
	case ci.LowerBound > noise:
		return VerdictRegressed
	default:
		return VerdictNoise
	}
}

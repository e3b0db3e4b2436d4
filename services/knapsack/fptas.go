// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knapsack

import (
	"fmt"
	"math/bits"
)

// FPTASSolver approximates the optimum by scaling item values down.
//
// Description:
//
//	Granularity K is the tolerated loss in percent of the largest item
//	value. The target divisor is d = floor(K·vmax / (100·n)) over the n
//	items that fit on their own, rounded down to a power of two 2^L.
//	Values are scaled to floor(v / 2^l) for every level l from L up to
//	the level where all scaled values reach zero; each level is solved
//	with the profit-indexed DP core, topped up greedily with items that
//	still fit, and scored by its original values. The best level wins,
//	ties going to the finer one. When L is 0 the first level is already
//	exact and is returned directly.
//
// Guarantees:
//   - The reported value never exceeds the optimum.
//   - The loss is below n·2^L <= K·vmax/100 <= (K/100)·optimum.
//   - A smaller K solves a superset of the levels of a larger K, so the
//     reported value never decreases as K decreases.
//
// Weights are never scaled, so every selection is feasible.
//
// Thread Safety: Safe for concurrent use.
type FPTASSolver struct {
	granularity int
	limits      Limits
}

// NewFPTASSolver creates an FPTAS solver.
//
// Inputs:
//   - granularity: K >= 1. Larger values trade accuracy for speed.
//   - limits: Memory limits for the scaled DP tables.
//
// Outputs:
//   - *FPTASSolver: The solver. Nil on error.
//   - error: ErrInvalidConfiguration (wrapped) if granularity < 1.
func NewFPTASSolver(granularity int, limits Limits) (*FPTASSolver, error) {
	if granularity < 1 {
		return nil, fmt.Errorf("granularity %d must be at least 1: %w", granularity, ErrInvalidConfiguration)
	}
	return &FPTASSolver{granularity: granularity, limits: limits.withDefaults()}, nil
}

// Method returns MethodFPTAS.
func (s *FPTASSolver) Method() Method {
	return MethodFPTAS
}

// Granularity returns K.
func (s *FPTASSolver) Granularity() int {
	return s.granularity
}

// Solve returns a feasible selection whose value is within the granularity
// bound of the optimum. Indices are in descending order.
func (s *FPTASSolver) Solve(inst *Instance) (*Solution, error) {
	if s.granularity < 1 {
		return nil, fmt.Errorf("granularity %d must be at least 1: %w", s.granularity, ErrInvalidConfiguration)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if inst.degenerate() {
		return emptySolution(), nil
	}

	var fit []int
	var vmax uint64
	for _, it := range inst.Items {
		if uint64(it.Weight) <= inst.Capacity {
			fit = append(fit, it.Index)
			vmax = max(vmax, uint64(it.Value))
		}
	}
	if vmax == 0 {
		return emptySolution(), nil
	}

	weights := make([]uint64, len(fit))
	for k, idx := range fit {
		weights[k] = uint64(inst.Items[idx].Weight)
	}

	limits := s.limits.withDefaults()
	top := bits.Len64(vmax)
	first := min(scaleLevel(s.granularity, vmax, len(fit)), top)

	var best []bool
	var bestValue uint64
	for level := first; level <= top; level++ {
		taken, err := s.solveLevel(inst, fit, weights, level, limits)
		if err != nil {
			return nil, err
		}
		value := selectionValue(inst, fit, taken)
		if best == nil || value > bestValue {
			best, bestValue = taken, value
		}
		if level == 0 {
			break
		}
	}

	selected := make([]bool, len(inst.Items))
	for k, ok := range best {
		if ok {
			selected[fit[k]] = true
		}
	}
	return solutionFromMask(inst, selected), nil
}

// solveLevel solves fit with values scaled by 2^level and fills the
// remaining capacity greedily in index order.
func (s *FPTASSolver) solveLevel(inst *Instance, fit []int, weights []uint64, level int, limits Limits) ([]bool, error) {
	profits := make([]uint64, len(fit))
	var nonzero bool
	for k, idx := range fit {
		profits[k] = uint64(inst.Items[idx].Value) >> level
		nonzero = nonzero || profits[k] > 0
	}

	taken := make([]bool, len(fit))
	var used uint64
	if nonzero {
		var err error
		taken, err = minWeightSelection(weights, profits, inst.Capacity, limits)
		if err != nil {
			return nil, fmt.Errorf("fptas level %d: %w", level, err)
		}
		for k, ok := range taken {
			if ok {
				used += weights[k]
			}
		}
	}

	for k := range fit {
		if !taken[k] && inst.Items[fit[k]].Value > 0 && used+weights[k] <= inst.Capacity {
			taken[k] = true
			used += weights[k]
		}
	}
	return taken, nil
}

// scaleLevel returns L such that 2^L <= max(1, floor(K·vmax/(100·n))).
// A product too large for 64 bits yields a level past every value.
func scaleLevel(granularity int, vmax uint64, n int) int {
	hi, lo := bits.Mul64(uint64(granularity), vmax)
	if hi != 0 {
		return 64
	}
	d := lo / (100 * uint64(n))
	if d < 2 {
		return 0
	}
	return bits.Len64(d) - 1
}

func selectionValue(inst *Instance, fit []int, taken []bool) uint64 {
	var total uint64
	for k, ok := range taken {
		if ok {
			total += uint64(inst.Items[fit[k]].Value)
		}
	}
	return total
}

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

import "fmt"

// DPSolver solves instances exactly with dynamic programming over
// capacities.
//
// Description:
//
//	Keeps one row dp[j] = best value within budget j and folds items in
//	one at a time, scanning budgets from the capacity down so each item
//	is used at most once. For every (item, budget) cell a single bit
//	records whether the item improved dp[j]; walking the items backwards
//	over those bits rebuilds the selection, so Items come out in
//	descending index order.
//
//	The capacity is clamped to the total item weight before allocating,
//	which leaves the set of feasible selections unchanged.
//
// Complexity: O(n·C) time, n·C bits plus C words of memory.
//
// Thread Safety: Safe for concurrent use.
type DPSolver struct {
	limits Limits
}

// NewDPSolver creates an exact DP solver bounded by limits.
func NewDPSolver(limits Limits) *DPSolver {
	return &DPSolver{limits: limits.withDefaults()}
}

// Method returns MethodDP.
func (s *DPSolver) Method() Method {
	return MethodDP
}

// Solve returns an optimal selection for inst.
//
// Outputs:
//   - *Solution: Optimal selection, indices in descending order.
//   - error: ErrMalformedInstance or ErrResourceExhausted (wrapped).
func (s *DPSolver) Solve(inst *Instance) (*Solution, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if inst.degenerate() {
		return emptySolution(), nil
	}

	capacity := min(inst.Capacity, inst.TotalWeight())
	n := len(inst.Items)
	if err := s.limits.withDefaults().checkTable("dp", uint64(n), capacity+1, 1, (capacity+1)*8); err != nil {
		return nil, err
	}

	c := int(capacity)
	dp := make([]uint64, c+1)
	improved := newBitTable(n, c+1)
	for i, it := range inst.Items {
		w := int(it.Weight)
		if w > c {
			continue
		}
		v := uint64(it.Value)
		for j := c; j >= w; j-- {
			if cand := dp[j-w] + v; cand > dp[j] {
				dp[j] = cand
				improved.set(i, j)
			}
		}
	}

	sol := emptySolution()
	j := c
	for i := n - 1; i >= 0; i-- {
		if improved.get(i, j) {
			sol.Items = append(sol.Items, i)
			sol.TotalValue += uint64(inst.Items[i].Value)
			j -= int(inst.Items[i].Weight)
		}
	}
	if sol.TotalValue != dp[c] {
		return nil, fmt.Errorf("dp reconstruction value %d differs from table value %d", sol.TotalValue, dp[c])
	}
	return sol, nil
}

// minWeightSelection is the profit-indexed DP core: for every reachable
// total profit it keeps the smallest weight achieving it, then returns the
// selection with the largest profit whose weight fits capacity.
//
// Items with profit 0 are never selected. The table is checked against
// limits before it is allocated.
func minWeightSelection(weights []uint64, profits []uint64, capacity uint64, limits Limits) ([]bool, error) {
	n := len(weights)
	var total uint64
	for _, p := range profits {
		total += p
	}
	if err := limits.checkTable("profit", uint64(n), total+1, 1, (total+1)*8); err != nil {
		return nil, err
	}

	const unreachable = ^uint64(0)
	top := int(total)
	minWeight := make([]uint64, top+1)
	for p := 1; p <= top; p++ {
		minWeight[p] = unreachable
	}
	improved := newBitTable(n, top+1)
	reach := 0
	for i := 0; i < n; i++ {
		pi := int(profits[i])
		if pi == 0 {
			continue
		}
		reach += pi
		for p := reach; p >= pi; p-- {
			prev := minWeight[p-pi]
			if prev == unreachable {
				continue
			}
			if cand := prev + weights[i]; cand < minWeight[p] {
				minWeight[p] = cand
				improved.set(i, p)
			}
		}
	}

	best := 0
	for p := top; p > 0; p-- {
		if minWeight[p] <= capacity {
			best = p
			break
		}
	}

	selected := make([]bool, n)
	p := best
	for i := n - 1; i >= 0 && p > 0; i-- {
		if improved.get(i, p) {
			selected[i] = true
			p -= int(profits[i])
		}
	}
	return selected, nil
}

// bitTable is a dense rows×cols bit matrix.
type bitTable struct {
	cols  int
	words []uint64
}

func newBitTable(rows, cols int) *bitTable {
	return &bitTable{cols: cols, words: make([]uint64, (rows*cols+63)/64)}
}

func (t *bitTable) set(row, col int) {
	k := row*t.cols + col
	t.words[k>>6] |= 1 << (k & 63)
}

func (t *bitTable) get(row, col int) bool {
	k := row*t.cols + col
	return t.words[k>>6]&(1<<(k&63)) != 0
}

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

// BranchAndBoundSolver solves instances exactly with depth-first search.
//
// Description:
//
//	Items are explored in descending density order, including an item
//	before excluding it. A node is discarded when its value plus the
//	fractional relaxation of the remaining capacity cannot beat the best
//	selection found so far. The search runs on an explicit work stack, so
//	its depth is bounded by Limits.MaxSearchFrames rather than by the
//	goroutine stack.
//
// There is no internal timeout. Limits.MaxNodes, when set, caps the number
// of explored nodes.
//
// Thread Safety: Safe for concurrent use. Each Solve owns its search state.
type BranchAndBoundSolver struct {
	limits Limits
}

// NewBranchAndBoundSolver creates a branch-and-bound solver bounded by limits.
func NewBranchAndBoundSolver(limits Limits) *BranchAndBoundSolver {
	return &BranchAndBoundSolver{limits: limits.withDefaults()}
}

// Method returns MethodBranchAndBound.
func (s *BranchAndBoundSolver) Method() Method {
	return MethodBranchAndBound
}

// Solve returns an optimal selection for inst, indices in descending order.
func (s *BranchAndBoundSolver) Solve(inst *Instance) (*Solution, error) {
	sol, _, err := s.solve(inst)
	return sol, err
}

// SolveWithStats is Solve that also reports how many nodes were explored.
func (s *BranchAndBoundSolver) SolveWithStats(inst *Instance) (*Solution, uint64, error) {
	return s.solve(inst)
}

func (s *BranchAndBoundSolver) solve(inst *Instance) (*Solution, uint64, error) {
	if err := inst.Validate(); err != nil {
		return nil, 0, err
	}
	if inst.degenerate() {
		return emptySolution(), 0, nil
	}

	limits := s.limits.withDefaults()
	items := newDensityOrder(inst)
	if frames := items.len() + 1; frames > limits.MaxSearchFrames {
		return nil, 0, fmt.Errorf("search needs %d frames, limit %d: %w", frames, limits.MaxSearchFrames, ErrResourceExhausted)
	}

	search := newBBSearch(items, limits.MaxNodes)
	if err := search.run(); err != nil {
		return nil, search.nodes, err
	}
	return solutionFromMask(inst, items.mask(len(inst.Items), search.best)), search.nodes, nil
}

// bbFrame is one pending node: the first depth items of the density order
// are decided, the last of them as recorded by included.
type bbFrame struct {
	depth    int
	weight   uint64
	value    uint64
	included bool
}

// bbSearch holds the state of one branch-and-bound run.
type bbSearch struct {
	items *densityOrder
	stack []bbFrame

	// path[k] is the decision for position k on the branch being explored.
	// Entries at or beyond the current depth are stale.
	path []bool

	bestValue uint64
	best      []bool

	nodes    uint64
	maxNodes uint64
}

func newBBSearch(items *densityOrder, maxNodes uint64) *bbSearch {
	m := items.len()
	return &bbSearch{
		items:    items,
		stack:    make([]bbFrame, 0, m+1),
		path:     make([]bool, m),
		best:     make([]bool, m),
		maxNodes: maxNodes,
	}
}

// run explores the tree. Every node pushes at most one sibling that
// outlives it, so the stack never holds more than m+1 frames.
func (s *bbSearch) run() error {
	m := s.items.len()
	capacity := s.items.capacity
	s.stack = append(s.stack, bbFrame{})

	for len(s.stack) > 0 {
		f := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		s.nodes++
		if s.maxNodes > 0 && s.nodes > s.maxNodes {
			return fmt.Errorf("explored more than %d nodes: %w", s.maxNodes, ErrResourceExhausted)
		}

		if f.depth > 0 {
			s.path[f.depth-1] = f.included
		}
		if f.value > s.bestValue {
			s.bestValue = f.value
			copy(s.best, s.path[:f.depth])
			clear(s.best[f.depth:])
		}
		if f.depth == m {
			continue
		}
		if f.value+s.items.fractionalFill(f.depth, capacity-f.weight) <= s.bestValue {
			continue
		}

		// Exclude is pushed first so include is popped first.
		s.stack = append(s.stack, bbFrame{depth: f.depth + 1, weight: f.weight, value: f.value})
		if w := s.items.weights[f.depth]; f.weight+w <= capacity {
			s.stack = append(s.stack, bbFrame{
				depth:    f.depth + 1,
				weight:   f.weight + w,
				value:    f.value + s.items.values[f.depth],
				included: true,
			})
		}
	}
	return nil
}

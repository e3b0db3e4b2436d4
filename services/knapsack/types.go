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

// -----------------------------------------------------------------------------
// Instance
// -----------------------------------------------------------------------------

// Item is a single candidate for the knapsack.
//
// Index is the item's 0-based position in the loaded instance. It is the
// identifier reported in solutions regardless of how a solver reorders
// items internally.
type Item struct {
	Index  int    `json:"index"`
	Weight uint32 `json:"weight"`
	Value  uint32 `json:"value"`
}

// Instance is an immutable knapsack problem.
//
// Invariants:
//   - Items[i].Index == i for every i.
//
// Solvers only read an Instance; it is safe to share one between
// concurrent solves once built.
type Instance struct {
	Capacity uint64 `json:"capacity"`
	Items    []Item `json:"items"`
}

// NewInstance builds an instance from parallel value and weight slices.
//
// Description:
//
//	Assigns each item its position as Index. The slices must have equal
//	length.
//
// Inputs:
//   - capacity: The knapsack capacity.
//   - values: Item values, one per item.
//   - weights: Item weights, one per item.
//
// Outputs:
//   - *Instance: The instance. Never nil on success.
//   - error: ErrMalformedInstance if the slices differ in length.
func NewInstance(capacity uint64, values, weights []uint32) (*Instance, error) {
	if len(values) != len(weights) {
		return nil, fmt.Errorf("%d values but %d weights: %w", len(values), len(weights), ErrMalformedInstance)
	}
	items := make([]Item, len(values))
	for i := range values {
		items[i] = Item{Index: i, Weight: weights[i], Value: values[i]}
	}
	return &Instance{Capacity: capacity, Items: items}, nil
}

// Validate checks the structural invariants of the instance.
//
// Outputs:
//   - error: ErrMalformedInstance (wrapped) if the instance is nil or an
//     item's Index does not match its position.
func (in *Instance) Validate() error {
	if in == nil {
		return fmt.Errorf("nil instance: %w", ErrMalformedInstance)
	}
	for i, it := range in.Items {
		if it.Index != i {
			return fmt.Errorf("item at position %d has index %d: %w", i, it.Index, ErrMalformedInstance)
		}
	}
	return nil
}

// Len returns the number of items.
func (in *Instance) Len() int {
	return len(in.Items)
}

// TotalWeight returns the sum of all item weights.
func (in *Instance) TotalWeight() uint64 {
	var total uint64
	for _, it := range in.Items {
		total += uint64(it.Weight)
	}
	return total
}

// degenerate reports whether every solver must return the empty selection.
func (in *Instance) degenerate() bool {
	return len(in.Items) == 0 || in.Capacity == 0
}

// -----------------------------------------------------------------------------
// Solution
// -----------------------------------------------------------------------------

// Solution is the outcome of a single solve.
//
// Items holds original item indices without duplicates. TotalValue is the
// sum of the original values of those items. Exact solvers return the
// optimum; approximate solvers return a value no greater than it.
type Solution struct {
	Items      []int  `json:"items"`
	TotalValue uint64 `json:"total_value"`
}

// TotalWeight returns the weight of the selection within inst.
func (s *Solution) TotalWeight(inst *Instance) uint64 {
	var total uint64
	for _, idx := range s.Items {
		total += uint64(inst.Items[idx].Weight)
	}
	return total
}

// emptySolution is the answer for degenerate instances. Items is non-nil
// so the JSON form is [] rather than null.
func emptySolution() *Solution {
	return &Solution{Items: []int{}}
}

// solutionFromMask builds a Solution from a selection flag per item,
// listing indices in descending order.
func solutionFromMask(inst *Instance, selected []bool) *Solution {
	sol := emptySolution()
	for i := len(selected) - 1; i >= 0; i-- {
		if selected[i] {
			sol.Items = append(sol.Items, i)
			sol.TotalValue += uint64(inst.Items[i].Value)
		}
	}
	return sol
}

// -----------------------------------------------------------------------------
// Solver
// -----------------------------------------------------------------------------

// Solver computes a selection for an instance.
//
// Thread Safety: Implementations are safe for concurrent use.
type Solver interface {
	// Method identifies the algorithm.
	Method() Method

	// Solve returns a feasible selection for inst.
	//
	// Errors wrap ErrMalformedInstance, ErrInvalidConfiguration or
	// ErrResourceExhausted.
	Solve(inst *Instance) (*Solution, error)
}

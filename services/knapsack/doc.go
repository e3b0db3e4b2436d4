// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knapsack solves 0/1 knapsack instances.
//
// Given items with integer weights and values and a capacity, a solver
// selects a subset of items whose total weight does not exceed the
// capacity and whose total value is as large as possible.
//
// # Solvers
//
// Four strategies are provided, all behind the Solver interface:
//
//   - DPSolver: exact dynamic programming over capacities, O(n·C) time.
//   - BranchAndBoundSolver: exact depth-first search in density order,
//     pruned with the fractional relaxation bound.
//   - FPTASSolver: approximation by value scaling. Never reports more
//     than the optimum; the loss is bounded by the granularity.
//   - MinKnapSolver: exact primal-dual dynamic programming that expands a
//     core of items around the greedy break item.
//
// Every solver reports items by their original index and recomputes the
// total value from the original item values.
//
// # Resources
//
// Solvers never allocate tables or search stacks beyond the configured
// Limits. Oversized requests fail with ErrResourceExhausted before any
// large allocation happens.
//
// # Thread Safety
//
// Solvers hold only immutable configuration and may be shared between
// goroutines. Each Solve call is single-threaded and never mutates the
// instance it is given.
//
// # Example
//
//	inst, err := knapsack.NewInstance(50, []uint32{60, 100, 120}, []uint32{10, 20, 30})
//	if err != nil {
//	    return err
//	}
//	solver, err := knapsack.NewSolver(knapsack.MethodDP, knapsack.Options{})
//	if err != nil {
//	    return err
//	}
//	sol, err := solver.Solve(inst)
//	// sol.Items == []int{2, 1}, sol.TotalValue == 220
package knapsack

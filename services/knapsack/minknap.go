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
	"math"
)

// mkStateBytes approximates the memory held per live state, including
// its share of the decision list.
const mkStateBytes = 40

// MinKnapSolver solves instances exactly by expanding a core of items
// around the greedy break item.
//
// Description:
//
//	Items are sorted by density and the greedy prefix that fits forms the
//	break solution: items before the break item are packed, the rest are
//	not. The core [s, t] of undecided items then grows one step at a time
//	in both directions, alternately considering adding the next item after
//	the core and removing the next item before it. States are kept sorted
//	by weight with strictly increasing profit, so dominated states are
//	dropped as soon as they appear. A state is also dropped when its
//	linear upper bound cannot beat the best feasible profit found so far.
//
//	Each state carries a persistent list of the decisions that differ
//	from the break solution, which is all that is needed to rebuild the
//	winning selection.
//
// Thread Safety: Safe for concurrent use.
type MinKnapSolver struct {
	limits Limits
}

// NewMinKnapSolver creates an expanding-core solver bounded by limits.
func NewMinKnapSolver(limits Limits) *MinKnapSolver {
	return &MinKnapSolver{limits: limits.withDefaults()}
}

// Method returns MethodMinKnap.
func (s *MinKnapSolver) Method() Method {
	return MethodMinKnap
}

// Solve returns an optimal selection for inst, indices in descending order.
func (s *MinKnapSolver) Solve(inst *Instance) (*Solution, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if inst.degenerate() {
		return emptySolution(), nil
	}

	items := newDensityOrder(inst)
	core := newMKCore(items, s.limits.withDefaults())
	if err := core.expand(); err != nil {
		return nil, err
	}
	return solutionFromMask(inst, items.mask(len(inst.Items), core.selection())), nil
}

// mkDecision is one flip relative to the break solution: the item at
// position pos was added (pos >= break) or removed (pos < break).
type mkDecision struct {
	pos  int
	prev *mkDecision
}

type mkState struct {
	weight uint64
	profit uint64
	flips  *mkDecision
}

// mkCore is the search state of one expanding-core run. Items before s
// are packed in every state, items after t are in none.
type mkCore struct {
	items  *densityOrder
	limits Limits

	breakPos int
	s, t     int
	states   []mkState

	bestProfit uint64
	bestFlips  *mkDecision
}

func newMKCore(items *densityOrder, limits Limits) *mkCore {
	m := items.len()
	b := 0
	for b < m && items.prefixWeight[b+1] <= items.capacity {
		b++
	}
	breakState := mkState{weight: items.prefixWeight[b], profit: items.prefixValue[b]}
	return &mkCore{
		items:      items,
		limits:     limits,
		breakPos:   b,
		s:          b,
		t:          b - 1,
		states:     []mkState{breakState},
		bestProfit: breakState.profit,
	}
}

// expand grows the core until every item is decided or no state can
// improve on the best feasible profit.
func (c *mkCore) expand() error {
	m := c.items.len()
	for len(c.states) > 0 && (c.t+1 < m || c.s > 0) {
		if c.t+1 < m {
			c.t++
			if err := c.step(c.t, true); err != nil {
				return err
			}
		}
		if c.s > 0 && len(c.states) > 0 {
			c.s--
			if err := c.step(c.s, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// step branches every state on the item at pos (adding it when add is
// true, removing it otherwise), merges both lists, and filters the result.
func (c *mkCore) step(pos int, add bool) error {
	w, p := c.items.weights[pos], c.items.values[pos]
	flipped := make([]mkState, len(c.states))
	for i, st := range c.states {
		next := mkState{flips: &mkDecision{pos: pos, prev: st.flips}}
		if add {
			next.weight, next.profit = st.weight+w, st.profit+p
		} else {
			next.weight, next.profit = st.weight-w, st.profit-p
		}
		flipped[i] = next
	}

	// Adding shifts weights up, removing shifts them down; both lists stay
	// sorted by weight.
	merged := mergeStates(c.states, flipped)
	if uint64(len(merged)) > c.limits.MaxTableBytes/mkStateBytes {
		return fmt.Errorf("expanding core holds %d states: %w", len(merged), ErrResourceExhausted)
	}

	for _, st := range merged {
		if st.weight <= c.items.capacity && st.profit > c.bestProfit {
			c.bestProfit, c.bestFlips = st.profit, st.flips
		}
	}

	kept := merged[:0]
	for _, st := range merged {
		if bound, alive := c.bound(st); alive && bound > c.bestProfit {
			kept = append(kept, st)
		}
	}
	c.states = kept
	return nil
}

// bound is an upper bound on any completion of st given the current core.
//
// Below capacity, further additions gain at most the density of item t+1
// per unit of weight, and removals never pay for themselves since every
// removable item is at least as dense. Above capacity, at least the
// excess must be removed at no less than the density of item s-1. A state
// above capacity with nothing left to remove is dead.
func (c *mkCore) bound(st mkState) (uint64, bool) {
	capacity := c.items.capacity
	if st.weight <= capacity {
		next := c.t + 1
		if next >= c.items.len() {
			return st.profit, true
		}
		gain := scaledRate(capacity-st.weight, c.items.values[next], c.items.weights[next])
		if gain > math.MaxUint64-st.profit {
			return math.MaxUint64, true
		}
		return st.profit + gain, true
	}

	if c.s == 0 {
		return 0, false
	}
	prev := c.s - 1
	loss := scaledRate(st.weight-capacity, c.items.values[prev], c.items.weights[prev])
	if loss >= st.profit {
		return 0, false
	}
	return st.profit - loss, true
}

// selection rebuilds the best state as a per-position selection.
func (c *mkCore) selection() []bool {
	taken := make([]bool, c.items.len())
	for k := 0; k < c.breakPos; k++ {
		taken[k] = true
	}
	for d := c.bestFlips; d != nil; d = d.prev {
		taken[d.pos] = !taken[d.pos]
	}
	return taken
}

// mergeStates merges two weight-sorted lists, keeping only states whose
// profit strictly exceeds every lighter-or-equal state.
func mergeStates(a, b []mkState) []mkState {
	out := make([]mkState, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var next mkState
		takeA := j >= len(b) ||
			(i < len(a) && (a[i].weight < b[j].weight ||
				(a[i].weight == b[j].weight && a[i].profit >= b[j].profit)))
		if takeA {
			next = a[i]
			i++
		} else {
			next = b[j]
			j++
		}
		if len(out) > 0 && next.profit <= out[len(out)-1].profit {
			continue
		}
		out = append(out, next)
	}
	return out
}

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
	"cmp"
	"math"
	"math/bits"
	"slices"
	"sort"
)

// densityOrder is an instance restricted to the items an exact search
// has to decide on, sorted by value density.
//
// Zero-weight items with positive value are always selected and are kept
// aside in forced. Items heavier than the capacity can never be selected
// and are dropped. The remaining items all have weight >= 1, so comparing
// densities by cross-multiplication is a strict weak order.
type densityOrder struct {
	capacity uint64

	// order holds original indices, densest first. Ties keep index order.
	order   []int
	weights []uint64
	values  []uint64

	// prefixWeight[k] and prefixValue[k] sum the first k items of order.
	prefixWeight []uint64
	prefixValue  []uint64

	forced      []int
	forcedValue uint64
}

func newDensityOrder(inst *Instance) *densityOrder {
	d := &densityOrder{capacity: inst.Capacity}
	for _, it := range inst.Items {
		switch {
		case it.Weight == 0:
			if it.Value > 0 {
				d.forced = append(d.forced, it.Index)
				d.forcedValue += uint64(it.Value)
			}
		case uint64(it.Weight) <= inst.Capacity:
			d.order = append(d.order, it.Index)
		}
	}

	// v_a/w_a > v_b/w_b  <=>  v_a·w_b > v_b·w_a; both products fit in 64 bits.
	slices.SortFunc(d.order, func(a, b int) int {
		ia, ib := inst.Items[a], inst.Items[b]
		lhs := uint64(ia.Value) * uint64(ib.Weight)
		rhs := uint64(ib.Value) * uint64(ia.Weight)
		switch {
		case lhs > rhs:
			return -1
		case lhs < rhs:
			return 1
		}
		return cmp.Compare(a, b)
	})

	m := len(d.order)
	d.weights = make([]uint64, m)
	d.values = make([]uint64, m)
	d.prefixWeight = make([]uint64, m+1)
	d.prefixValue = make([]uint64, m+1)
	for k, idx := range d.order {
		d.weights[k] = uint64(inst.Items[idx].Weight)
		d.values[k] = uint64(inst.Items[idx].Value)
		d.prefixWeight[k+1] = d.prefixWeight[k] + d.weights[k]
		d.prefixValue[k+1] = d.prefixValue[k] + d.values[k]
	}
	return d
}

// len returns the number of undecided items.
func (d *densityOrder) len() int {
	return len(d.order)
}

// fractionalFill returns the value of greedily filling room capacity with
// items k, k+1, ... in density order, taking the first item that does not
// fit fractionally. The fractional part is floored, which keeps the result
// an upper bound on any integral completion.
func (d *densityOrder) fractionalFill(k int, room uint64) uint64 {
	m := d.len()
	if k >= m {
		return 0
	}
	if room >= d.prefixWeight[m]-d.prefixWeight[k] {
		return d.prefixValue[m] - d.prefixValue[k]
	}
	target := d.prefixWeight[k] + room
	// j is the number of leading items whose cumulative weight fits.
	j := sort.Search(m+1, func(i int) bool { return d.prefixWeight[i] > target }) - 1
	gain := d.prefixValue[j] - d.prefixValue[k]
	if j < m {
		left := target - d.prefixWeight[j]
		gain += left * d.values[j] / d.weights[j]
	}
	return gain
}

// scaledRate returns floor(amount·value/weight), saturating at MaxUint64.
func scaledRate(amount, value, weight uint64) uint64 {
	hi, lo := bits.Mul64(amount, value)
	if hi >= weight {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, weight)
	return q
}

// mask converts a per-position selection into a per-item selection for
// inst, adding the forced items.
func (d *densityOrder) mask(n int, taken []bool) []bool {
	selected := make([]bool, n)
	for _, idx := range d.forced {
		selected[idx] = true
	}
	for k, ok := range taken {
		if ok {
			selected[d.order[k]] = true
		}
	}
	return selected
}

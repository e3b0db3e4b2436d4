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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

type instanceKind int

const (
	uncorrelated instanceKind = iota
	weaklyCorrelated
	stronglyCorrelated
)

func (k instanceKind) String() string {
	switch k {
	case weaklyCorrelated:
		return "weakly correlated"
	case stronglyCorrelated:
		return "strongly correlated"
	default:
		return "uncorrelated"
	}
}

// randomInstance generates a test instance whose capacity is roughly half
// the total weight.
func randomInstance(rng *rand.Rand, n int, maxWeight uint32, kind instanceKind) *Instance {
	values := make([]uint32, n)
	weights := make([]uint32, n)
	var total uint64
	for i := 0; i < n; i++ {
		w := 1 + rng.Uint32N(maxWeight)
		var v uint32
		switch kind {
		case weaklyCorrelated:
			spread := max(maxWeight/10, 1)
			v = w + rng.Uint32N(2*spread+1)
			if v > spread {
				v -= spread
			} else {
				v = 1
			}
		case stronglyCorrelated:
			v = w + maxWeight/10
		default:
			v = 1 + rng.Uint32N(maxWeight)
		}
		weights[i], values[i] = w, v
		total += uint64(w)
	}
	inst, err := NewInstance(total/2, values, weights)
	if err != nil {
		panic(err)
	}
	return inst
}

// bruteForce returns the optimum by enumerating every subset.
func bruteForce(inst *Instance) uint64 {
	n := len(inst.Items)
	var best uint64
	for mask := 0; mask < 1<<n; mask++ {
		var w, v uint64
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				w += uint64(inst.Items[i].Weight)
				v += uint64(inst.Items[i].Value)
			}
		}
		if w <= inst.Capacity && v > best {
			best = v
		}
	}
	return best
}

func mustInstance(t testing.TB, capacity uint64, values, weights []uint32) *Instance {
	t.Helper()
	inst, err := NewInstance(capacity, values, weights)
	require.NoError(t, err)
	return inst
}

// fiveItems has the unique optimum {0, 4} with value 1557 at capacity 1000.
func fiveItems(t testing.TB) *Instance {
	return mustInstance(t, 1000,
		[]uint32{500, 420, 380, 780, 1057},
		[]uint32{400, 350, 300, 700, 600},
	)
}

func allSolvers(t testing.TB) []Solver {
	t.Helper()
	solvers := make([]Solver, 0, len(Methods()))
	for _, m := range Methods() {
		s, err := NewSolver(m, Options{Granularity: DefaultGranularity})
		require.NoError(t, err)
		solvers = append(solvers, s)
	}
	return solvers
}

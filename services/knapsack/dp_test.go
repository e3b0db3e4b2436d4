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
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDPSolver_FiveItems(t *testing.T) {
	sol, err := NewDPSolver(Limits{}).Solve(fiveItems(t))
	require.NoError(t, err)

	assert.Equal(t, []int{4, 0}, sol.Items)
	assert.Equal(t, uint64(1557), sol.TotalValue)
}

func TestDPSolver_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	solver := NewDPSolver(Limits{})

	for _, kind := range []instanceKind{uncorrelated, weaklyCorrelated, stronglyCorrelated} {
		t.Run(kind.String(), func(t *testing.T) {
			for trial := 0; trial < 60; trial++ {
				inst := randomInstance(rng, 1+rng.IntN(14), 100, kind)
				sol, err := solver.Solve(inst)
				require.NoError(t, err)
				require.NoError(t, Verify(inst, sol))
				require.Equal(t, bruteForce(inst), sol.TotalValue, "trial %d", trial)
			}
		})
	}

	t.Run("twenty items", func(t *testing.T) {
		inst := randomInstance(rng, 20, 1000, uncorrelated)
		sol, err := solver.Solve(inst)
		require.NoError(t, err)
		assert.Equal(t, bruteForce(inst), sol.TotalValue)
	})
}

func TestDPSolver_DescendingIndices(t *testing.T) {
	inst := mustInstance(t, 50, []uint32{60, 100, 120}, []uint32{10, 20, 30})
	sol, err := NewDPSolver(Limits{}).Solve(inst)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, sol.Items)
	assert.Equal(t, uint64(220), sol.TotalValue)
}

func TestDPSolver_ZeroWeightItems(t *testing.T) {
	t.Run("all weights zero", func(t *testing.T) {
		inst := mustInstance(t, 10, []uint32{5, 0, 7}, []uint32{0, 0, 0})
		sol, err := NewDPSolver(Limits{}).Solve(inst)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 0}, sol.Items)
		assert.Equal(t, uint64(12), sol.TotalValue)
	})

	t.Run("mixed", func(t *testing.T) {
		inst := mustInstance(t, 5, []uint32{3, 10, 4}, []uint32{0, 5, 5})
		sol, err := NewDPSolver(Limits{}).Solve(inst)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, sol.Items)
		assert.Equal(t, uint64(13), sol.TotalValue)
	})
}

func TestDPSolver_CapacityAboveTotalWeight(t *testing.T) {
	inst := mustInstance(t, 1<<40, []uint32{1, 2, 3}, []uint32{4, 5, 6})
	sol, err := NewDPSolver(Limits{}).Solve(inst)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, sol.Items)
	assert.Equal(t, uint64(6), sol.TotalValue)
}

func TestDPSolver_ResourceExhausted(t *testing.T) {
	inst := mustInstance(t, 1_000_000, []uint32{1, 2, 3}, []uint32{900_000, 800_000, 700_000})
	_, err := NewDPSolver(Limits{MaxTableBytes: 4096}).Solve(inst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceExhausted), "got %v", err)
}

func TestDPSolver_MalformedInstance(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		_, err := NewDPSolver(Limits{}).Solve(nil)
		assert.ErrorIs(t, err, ErrMalformedInstance)
	})

	t.Run("index mismatch", func(t *testing.T) {
		inst := &Instance{Capacity: 10, Items: []Item{{Index: 1, Weight: 1, Value: 1}}}
		_, err := NewDPSolver(Limits{}).Solve(inst)
		assert.ErrorIs(t, err, ErrMalformedInstance)
	})
}

func TestMinWeightSelection(t *testing.T) {
	weights := []uint64{10, 20, 30}
	profits := []uint64{6, 10, 12}

	taken, err := minWeightSelection(weights, profits, 50, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, taken)

	taken, err = minWeightSelection(weights, []uint64{0, 0, 0}, 50, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, taken)
}

func TestBitTable(t *testing.T) {
	table := newBitTable(3, 70)
	table.set(0, 0)
	table.set(1, 69)
	table.set(2, 5)

	assert.True(t, table.get(0, 0))
	assert.True(t, table.get(1, 69))
	assert.True(t, table.get(2, 5))
	assert.False(t, table.get(0, 1))
	assert.False(t, table.get(2, 69))
}

func BenchmarkDPSolver(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	inst := randomInstance(rng, 100, 1000, stronglyCorrelated)
	solver := NewDPSolver(Limits{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := solver.Solve(inst); err != nil {
			b.Fatal(err)
		}
	}
}

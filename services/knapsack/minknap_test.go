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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinKnapSolver_MatchesDP(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 23))
	dp := NewDPSolver(Limits{})
	mk := NewMinKnapSolver(Limits{})

	for _, kind := range []instanceKind{uncorrelated, weaklyCorrelated, stronglyCorrelated} {
		t.Run(kind.String(), func(t *testing.T) {
			for trial := 0; trial < 80; trial++ {
				inst := randomInstance(rng, 1+rng.IntN(60), 1000, kind)

				want, err := dp.Solve(inst)
				require.NoError(t, err)
				got, err := mk.Solve(inst)
				require.NoError(t, err)

				require.NoError(t, Verify(inst, got))
				require.Equal(t, want.TotalValue, got.TotalValue, "trial %d", trial)
			}
		})
	}
}

func TestMinKnapSolver_EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		capacity  uint64
		values    []uint32
		weights   []uint32
		wantItems []int
		wantValue uint64
	}{
		{"everything fits", 100, []uint32{1, 2, 3}, []uint32{10, 20, 30}, []int{2, 1, 0}, 6},
		{"nothing fits", 5, []uint32{10, 20}, []uint32{6, 7}, []int{}, 0},
		{"break item skipped", 10, []uint32{12, 9, 5}, []uint32{6, 5, 5}, []int{2, 1}, 14},
		{"forced zero weight", 3, []uint32{4, 9}, []uint32{0, 3}, []int{1, 0}, 13},
		{"five items", 1000, []uint32{500, 420, 380, 780, 1057}, []uint32{400, 350, 300, 700, 600}, []int{4, 0}, 1557},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := mustInstance(t, tt.capacity, tt.values, tt.weights)
			sol, err := NewMinKnapSolver(Limits{}).Solve(inst)
			require.NoError(t, err)
			assert.Equal(t, tt.wantItems, sol.Items)
			assert.Equal(t, tt.wantValue, sol.TotalValue)
		})
	}
}

func TestMinKnapSolver_StateBudget(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	inst := randomInstance(rng, 80, 100_000, stronglyCorrelated)

	_, err := NewMinKnapSolver(Limits{MaxTableBytes: mkStateBytes}).Solve(inst)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestMergeStates(t *testing.T) {
	a := []mkState{{weight: 1, profit: 5}, {weight: 4, profit: 9}, {weight: 6, profit: 9}}
	b := []mkState{{weight: 1, profit: 3}, {weight: 3, profit: 10}, {weight: 7, profit: 12}}

	got := mergeStates(a, b)

	want := []mkState{{weight: 1, profit: 5}, {weight: 3, profit: 10}, {weight: 7, profit: 12}}
	assert.Equal(t, want, got)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suite

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInstance(t *testing.T, dir, name string, inst *knapsack.Instance) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, format.WriteInstance(f, inst))
}

func randomInstance(t *testing.T, rng *rand.Rand, n int) *knapsack.Instance {
	t.Helper()
	values := make([]uint32, n)
	weights := make([]uint32, n)
	var total uint64
	for i := range values {
		weights[i] = 1 + rng.Uint32N(100)
		values[i] = weights[i] + rng.Uint32N(20)
		total += uint64(weights[i])
	}
	inst, err := knapsack.NewInstance(total/2, values, weights)
	require.NoError(t, err)
	return inst
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(1, 2))
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeInstance(t, dir, name, randomInstance(t, rng, 25))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.txt"), []byte("3 10\n1 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	report, err := Run(context.Background(), dir, Options{Parallelism: 2})
	require.NoError(t, err)

	require.Len(t, report.Files, 4)
	assert.Equal(t, 3, report.Passed)
	assert.Equal(t, 1, report.Failed)

	names := make([]string, len(report.Files))
	for i, f := range report.Files {
		names[i] = filepath.Base(f.Path)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "broken.txt", "c.txt"}, names)

	broken := report.Files[2]
	assert.False(t, broken.Passed())
	assert.ErrorIs(t, broken.Err, knapsack.ErrMalformedInstance)

	for _, f := range []FileResult{report.Files[0], report.Files[1], report.Files[3]} {
		require.True(t, f.Passed(), f.Path)
		require.NotNil(t, f.Optimum)
		require.Len(t, f.Results, len(knapsack.Methods()))
		for _, r := range f.Results {
			require.NotNil(t, r.Solution, "%s %s", f.Path, r.Method)
			if r.Method.Exact() {
				assert.Equal(t, *f.Optimum, r.Solution.TotalValue, "%s %s", f.Path, r.Method)
			} else {
				assert.LessOrEqual(t, r.Solution.TotalValue, *f.Optimum)
			}
		}
	}
}

func TestRun_PatternAndMethods(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(3, 4))
	writeInstance(t, dir, "keep.in", randomInstance(t, rng, 10))
	writeInstance(t, dir, "skip.txt", randomInstance(t, rng, 10))

	report, err := Run(context.Background(), dir, Options{
		Methods: []knapsack.Method{knapsack.MethodBranchAndBound, knapsack.MethodFPTAS},
		Pattern: "*.in",
	})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "keep.in", filepath.Base(report.Files[0].Path))
	require.Len(t, report.Files[0].Results, 2)
	assert.Equal(t, knapsack.MethodBranchAndBound, report.Files[0].Results[0].Method)
	assert.NotNil(t, report.Files[0].Optimum, "bkt serves as the reference without dp")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Run(context.Background(), dir, Options{})
	assert.ErrorIs(t, err, ErrNoInstances)

	_, err = Run(context.Background(), filepath.Join(dir, "missing"), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), dir, Options{Methods: []knapsack.Method{"greedy"}})
	assert.ErrorIs(t, err, knapsack.ErrInvalidConfiguration)

	_, err = Run(context.Background(), dir, Options{Pattern: "["})
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeInstance(t, dir, "a.txt", randomInstance(t, rand.New(rand.NewPCG(5, 6)), 5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, dir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrossCheck(t *testing.T) {
	sol := func(v uint64) *knapsack.Solution { return &knapsack.Solution{Items: []int{}, TotalValue: v} }

	res := FileResult{Results: []MethodResult{
		{Method: knapsack.MethodBranchAndBound, Solution: sol(90)},
		{Method: knapsack.MethodDP, Solution: sol(100)},
		{Method: knapsack.MethodFPTAS, Solution: sol(101)},
		{Method: knapsack.MethodMinKnap, Solution: sol(100)},
	}}
	crossCheck(&res)

	require.NotNil(t, res.Optimum)
	assert.Equal(t, uint64(100), *res.Optimum, "dp is the reference")
	assert.ErrorIs(t, res.Results[0].Err, ErrMismatch)
	assert.NoError(t, res.Results[1].Err)
	assert.ErrorIs(t, res.Results[2].Err, ErrMismatch)
	assert.NoError(t, res.Results[3].Err)
	assert.False(t, res.Passed())
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/knapsack/cmd/knapsack/config"
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classicInstance = `3 50
60 10
100 20
120 30
`

// cli runs commands with defaults only and an archive private to one test.
type cli struct {
	archive string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	return &cli{archive: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--log-level", "error", "--archive", c.archive}, args...))
	err := cmd.ExecuteContext(context.Background())
	a.close()
	return stdout.String(), err
}

func writeInstance(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func readSolutionFile(t *testing.T, path string) *knapsack.Solution {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	sol, err := format.ReadSolution(f)
	require.NoError(t, err)
	return sol
}

func TestRun_WritesSolution(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	output := filepath.Join(dir, "out.json")

	for _, method := range []string{"dp", "bkt", "minknap", "fptas"} {
		t.Run(method, func(t *testing.T) {
			_, err := c.run("run", "-i", input, "-o", output, method)
			require.NoError(t, err)

			sol := readSolutionFile(t, output)
			assert.Equal(t, uint64(220), sol.TotalValue)
			assert.ElementsMatch(t, []int{1, 2}, sol.Items)
		})
	}
}

func TestRun_DPReverseOrder(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	output := filepath.Join(dir, "out.json")

	_, err := c.run("run", "-i", input, "-o", output, "dp")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, readSolutionFile(t, output).Items)
}

func TestRun_FallsBackToStdout(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)

	out, err := c.run("run", "-i", input, "-o", filepath.Join(dir, "missing", "out.json"), "dp")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_value": 220`)
}

func TestRun_ConsoleFormat(t *testing.T) {
	c := newCLI(t)
	input := writeInstance(t, t.TempDir(), "classic.txt", classicInstance)

	out, err := c.run("run", "-i", input, "--format", "console", "bkt")
	require.NoError(t, err)
	assert.Contains(t, out, "# bkt on classic.txt")
	assert.Contains(t, out, "total value\t220")
	assert.Contains(t, out, "total weight\t50 / 50")
}

func TestRun_Errors(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	malformed := writeInstance(t, dir, "bad.txt", "2 10\n1 1\n")
	output := filepath.Join(dir, "out.json")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown method", []string{"run", "-i", input, "-o", output, "greedy"}, knapsack.ErrInvalidConfiguration},
		{"zero granularity", []string{"run", "-i", input, "-o", output, "fptas", "0"}, knapsack.ErrInvalidConfiguration},
		{"non-numeric granularity", []string{"run", "-i", input, "-o", output, "fptas", "2x"}, knapsack.ErrInvalidConfiguration},
		{"malformed instance", []string{"run", "-i", malformed, "-o", output, "dp"}, knapsack.ErrMalformedInstance},
		{"missing input", []string{"run", "-i", filepath.Join(dir, "nope.txt"), "-o", output, "dp"}, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run(tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := c.run("run", "dp")
	assert.Error(t, err, "input flag is required")

	_, err = c.run("run", "-i", input, "--format", "xml", "dp")
	assert.Error(t, err)
}

func TestRun_ResourceExhausted(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	cfgPath := writeInstance(t, dir, "knapsack.yaml", "limits:\n  max_table_bytes: 8\n")

	_, err := c.run("--config", cfgPath, "run", "-i", input, "-o", filepath.Join(dir, "out.json"), "dp")
	assert.ErrorIs(t, err, knapsack.ErrResourceExhausted)
}

func TestBenchmark_WritesReport(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	output := filepath.Join(dir, "bench.json")

	_, err := c.run("benchmark", "-i", input, "-o", output,
		"--samples", "5", "--warmup", "1", "--resamples", "50", "--confidence-level", "0.9", "dp")
	require.NoError(t, err)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	report, err := format.ReadReport(f)
	require.NoError(t, err)

	for _, e := range []struct {
		name string
		ci   float64
		lo   float64
		hi   float64
	}{
		{"mean", report.Mean.ConfidenceInterval.ConfidenceLevel, report.Mean.ConfidenceInterval.LowerBound, report.Mean.ConfidenceInterval.UpperBound},
		{"median", report.Median.ConfidenceInterval.ConfidenceLevel, report.Median.ConfidenceInterval.LowerBound, report.Median.ConfidenceInterval.UpperBound},
		{"std_dev", report.StdDev.ConfidenceInterval.ConfidenceLevel, report.StdDev.ConfidenceInterval.LowerBound, report.StdDev.ConfidenceInterval.UpperBound},
	} {
		assert.Equal(t, 0.9, e.ci, e.name)
		assert.LessOrEqual(t, e.lo, e.hi, e.name)
	}
	assert.Greater(t, report.Mean.PointEstimate, 0.0)
}

func TestBenchmark_Baselines(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	quick := []string{"-i", input, "-o", filepath.Join(dir, "bench.json"),
		"--samples", "5", "--warmup", "0", "--resamples", "50"}

	_, err := c.run(append(append([]string{"benchmark"}, quick...), "--baseline", "base", "bkt")...)
	require.Error(t, err, "comparing before a baseline exists")

	_, err = c.run(append(append([]string{"benchmark"}, quick...), "--save-baseline", "base", "bkt")...)
	require.NoError(t, err)

	out, err := c.run(append(append([]string{"benchmark"}, quick...),
		"--baseline", "base", "--format", "console", "bkt")...)
	require.NoError(t, err)
	assert.Contains(t, out, "change\t")
	assert.Contains(t, out, "p-value\t")

	out, err = c.run("baseline", "list", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "base"`)

	out, err = c.run("baseline", "history", "-i", input, "--format", "json", "bkt")
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id"`)

	_, err = c.run("baseline", "delete", "-i", input, "base", "bkt")
	require.NoError(t, err)

	out, err = c.run("baseline", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no baselines stored")
}

func TestVerify(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	input := writeInstance(t, dir, "classic.txt", classicInstance)
	output := filepath.Join(dir, "out.json")

	_, err := c.run("run", "-i", input, "-o", output, "minknap")
	require.NoError(t, err)

	out, err := c.run("verify", "-i", input, output)
	require.NoError(t, err)
	assert.Contains(t, out, "total value 220")

	tampered := writeInstance(t, dir, "tampered.json", `{"items":[0,1,2],"total_value":280}`)
	_, err = c.run("verify", "-i", input, tampered)
	assert.Error(t, err)

	wrongValue := writeInstance(t, dir, "wrong.json", `{"items":[1,2],"total_value":221}`)
	_, err = c.run("verify", "-i", input, wrongValue)
	assert.Error(t, err)
}

func TestSuite(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	writeInstance(t, dir, "classic.txt", classicInstance)
	writeInstance(t, dir, "empty.txt", "0 100\n")
	writeInstance(t, dir, "correlated.txt", "5 1000\n410 400\n510 500\n610 600\n710 700\n690 600\n")

	out, err := c.run("suite", "--methods", "dp,bkt,minknap", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "SUMMARY: passed=3")

	out, err = c.run("suite", "--format", "json", "-p", "1", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"passed": 3`)

	writeInstance(t, dir, "broken.txt", "3 10\n1 1\n")
	_, err = c.run("suite", dir)
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "knapsack.yaml")

	_, err := c.run("config", "init", path)
	require.NoError(t, err)

	out, err := c.run("--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "samples: 100")
	assert.Contains(t, out, "confidence_level: 0.95")

	_, err = c.run("config", "init", path)
	assert.Error(t, err, "init does not overwrite")
}

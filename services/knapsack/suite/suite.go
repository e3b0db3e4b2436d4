// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suite runs every instance file of a directory through a set of
// solvers, verifies each selection and cross-checks the methods against
// each other.
package suite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/format"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoInstances indicates the directory holds no matching files.
	ErrNoInstances = errors.New("no instance files found")

	// ErrMismatch indicates two exact methods disagreed on the optimum, or
	// an approximation exceeded it.
	ErrMismatch = errors.New("methods disagree")
)

// Options configures a suite run.
type Options struct {
	// Methods to run on every file. Default: every known method.
	Methods []knapsack.Method

	// Granularity is the FPTAS K. Default: knapsack.DefaultGranularity.
	Granularity int

	// Limits bounds each solve.
	Limits knapsack.Limits

	// Parallelism is the number of files processed concurrently.
	// Default: runtime.NumCPU().
	Parallelism int

	// Pattern selects files by base name (filepath.Match). Default: "*".
	// Hidden files and .json files are always skipped.
	Pattern string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if len(o.Methods) == 0 {
		o.Methods = knapsack.Methods()
	}
	if o.Granularity == 0 {
		o.Granularity = knapsack.DefaultGranularity
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.Pattern == "" {
		o.Pattern = "*"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// MethodResult is the outcome of one method on one file.
type MethodResult struct {
	Method   knapsack.Method    `json:"method"`
	Solution *knapsack.Solution `json:"solution,omitempty"`
	Duration time.Duration      `json:"duration_ns"`
	Err      error              `json:"-"`
	Error    string             `json:"error,omitempty"`
}

// FileResult is the outcome of one instance file.
type FileResult struct {
	Path     string         `json:"path"`
	Items    int            `json:"items"`
	Capacity uint64         `json:"capacity"`
	Optimum  *uint64        `json:"optimum,omitempty"`
	Results  []MethodResult `json:"results"`
	Err      error          `json:"-"`
	Error    string         `json:"error,omitempty"`
}

// Passed reports whether the file parsed and every method produced a
// verified, consistent selection.
func (f *FileResult) Passed() bool {
	if f.Err != nil {
		return false
	}
	for _, r := range f.Results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

func (f *FileResult) fail(err error) {
	f.Err = err
	f.Error = err.Error()
}

func (r *MethodResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// Report aggregates a suite run.
type Report struct {
	Dir    string       `json:"dir"`
	Files  []FileResult `json:"files"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
}

// Run processes every instance file in dir.
//
// Description:
//
//	Files are processed concurrently, at most opts.Parallelism at a time.
//	Within a file, methods run one after another. Each selection is
//	checked with knapsack.Verify. Exact methods must agree with the
//	reference optimum (dp when selected, else the first exact method);
//	approximations must not exceed it. Per-file failures are recorded in
//	the report, not returned.
//
// Inputs:
//   - ctx: Cancels the run between solves.
//   - dir: Directory holding instance files.
//   - opts: Run options; zero values take defaults.
//
// Outputs:
//   - *Report: Results in file-name order.
//   - error: ErrNoInstances, a wrapped knapsack.ErrInvalidConfiguration for
//     an unknown method, a directory read error, or ctx.Err().
//
// Thread Safety: Safe for concurrent use.
func Run(ctx context.Context, dir string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	solvers, err := buildSolvers(opts)
	if err != nil {
		return nil, err
	}

	paths, err := listInstances(dir, opts.Pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s (pattern %q): %w", dir, opts.Pattern, ErrNoInstances)
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, path := range paths {
		g.Go(func() error {
			res, err := runFile(gctx, path, solvers)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Dir: dir, Files: results}
	for i := range results {
		if results[i].Passed() {
			report.Passed++
		} else {
			report.Failed++
			opts.Logger.Warn("suite file failed",
				slog.String("path", results[i].Path),
				slog.String("error", results[i].FirstError()),
			)
		}
	}
	opts.Logger.Info("suite completed",
		slog.String("dir", dir),
		slog.Int("files", len(results)),
		slog.Int("passed", report.Passed),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func buildSolvers(opts Options) ([]knapsack.Solver, error) {
	solvers := make([]knapsack.Solver, 0, len(opts.Methods))
	for _, m := range opts.Methods {
		s, err := knapsack.NewSolver(m, knapsack.Options{Granularity: opts.Granularity, Limits: opts.Limits})
		if err != nil {
			return nil, err
		}
		solvers = append(solvers, s)
	}
	return solvers, nil
}

// listInstances returns matching regular files of dir in name order.
func listInstances(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read suite directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// runFile solves one file with every solver. Only ctx errors are returned.
func runFile(ctx context.Context, path string, solvers []knapsack.Solver) (FileResult, error) {
	res := FileResult{Path: path}

	inst, err := readInstance(path)
	if err != nil {
		res.fail(err)
		return res, nil
	}
	res.Items = inst.Len()
	res.Capacity = inst.Capacity

	for _, s := range solvers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		mr := MethodResult{Method: s.Method()}
		start := time.Now()
		sol, err := s.Solve(inst)
		mr.Duration = time.Since(start)
		if err != nil {
			mr.fail(err)
		} else {
			mr.Solution = sol
			if verr := knapsack.Verify(inst, sol); verr != nil {
				mr.fail(verr)
			}
		}
		res.Results = append(res.Results, mr)
	}

	crossCheck(&res)
	return res, nil
}

func readInstance(path string) (*knapsack.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instance: %w", err)
	}
	defer f.Close()
	return format.ParseInstance(f)
}

// crossCheck compares every successful result with the reference optimum.
func crossCheck(res *FileResult) {
	ref := -1
	for i, r := range res.Results {
		if r.Err != nil || !r.Method.Exact() {
			continue
		}
		if ref < 0 || r.Method == knapsack.MethodDP {
			ref = i
		}
	}
	if ref < 0 {
		return
	}

	optimum := res.Results[ref].Solution.TotalValue
	res.Optimum = &optimum
	for i := range res.Results {
		r := &res.Results[i]
		if r.Err != nil || i == ref {
			continue
		}
		got := r.Solution.TotalValue
		switch {
		case r.Method.Exact() && got != optimum:
			r.fail(fmt.Errorf("%s found %d, %s found %d: %w",
				r.Method, got, res.Results[ref].Method, optimum, ErrMismatch))
		case !r.Method.Exact() && got > optimum:
			r.fail(fmt.Errorf("%s found %d above the optimum %d: %w", r.Method, got, optimum, ErrMismatch))
		}
	}
}

// FirstError describes the first failure of f, or "" when it passed.
func (f *FileResult) FirstError() string {
	if f.Err != nil {
		return f.Error
	}
	for _, r := range f.Results {
		if r.Err != nil {
			return fmt.Sprintf("%s: %s", r.Method, r.Error)
		}
	}
	return ""
}

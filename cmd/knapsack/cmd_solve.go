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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/knapsack/pkg/ux"
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/archive"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
	"github.com/AleutianAI/knapsack/services/knapsack/format"
	"github.com/spf13/cobra"
)

// solveFlags are shared by run and benchmark.
type solveFlags struct {
	input  string
	output string
	format string
}

func (f *solveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Instance file")
	cmd.Flags().StringVarP(&f.output, "output", "o", "out.json", "Result file; stdout when it cannot be created")
	cmd.Flags().StringVar(&f.format, "format", formatJSON, "Output format: json or console")
	_ = cmd.MarkFlagRequired("input")
}

type benchmarkFlags struct {
	solveFlags
	samples         int
	warmup          int
	resamples       int
	confidenceLevel float64
	seed            uint64
	baseline        string
	saveBaseline    string
}

func newRunCmd(a *app) *cobra.Command {
	var flags solveFlags
	cmd := &cobra.Command{
		Use:   "run METHOD [GRANULARITY]",
		Short: "Solve an instance once",
		Long: `Solve an instance with METHOD (dp, bkt, minknap or fptas) and write
{"items": [...], "total_value": n}. GRANULARITY is the FPTAS K (default 1).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSolve(cmd.Context(), flags, args)
		},
	}
	flags.register(cmd)
	return cmd
}

func newBenchmarkCmd(a *app) *cobra.Command {
	var flags benchmarkFlags
	cmd := &cobra.Command{
		Use:   "benchmark METHOD [GRANULARITY]",
		Short: "Benchmark a method with bootstrap confidence intervals",
		Long: `Time repeated solves of an instance and report mean, median and standard
deviation, each with a bootstrap confidence interval. With --baseline the run is
compared against a stored baseline; with --save-baseline it becomes one.`,
		Aliases: []string{"bench"},
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBenchmark(cmd, flags, args)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&flags.samples, "samples", 0, "Timed invocations (default from configuration)")
	cmd.Flags().IntVar(&flags.warmup, "warmup", 0, "Untimed invocations before sampling")
	cmd.Flags().IntVar(&flags.resamples, "resamples", 0, "Bootstrap resamples per statistic")
	cmd.Flags().Float64Var(&flags.confidenceLevel, "confidence-level", 0, "Confidence level in (0, 1)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "Bootstrap seed")
	cmd.Flags().StringVar(&flags.baseline, "baseline", "", "Compare against this stored baseline")
	cmd.Flags().StringVar(&flags.saveBaseline, "save-baseline", "", "Store this run as the named baseline")
	return cmd
}

func (a *app) runSolve(ctx context.Context, flags solveFlags, args []string) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	method, granularity, err := parseMethodArgs(args)
	if err != nil {
		return err
	}
	inst, err := readInstanceFile(flags.input)
	if err != nil {
		return err
	}
	solver, err := knapsack.NewSolver(method, knapsack.Options{Granularity: granularity, Limits: a.cfg.Limits})
	if err != nil {
		return err
	}

	start := time.Now()
	sol, err := solver.Solve(inst)
	elapsed := time.Since(start)
	a.metrics.RecordSolve(ctx, method, elapsed, sol, err)
	if err != nil {
		return fmt.Errorf("solve %s: %w", flags.input, err)
	}
	a.logger.Info("Solved",
		slog.String("method", string(method)),
		slog.Int("items", inst.Len()),
		slog.Uint64("total_value", sol.TotalValue),
		slog.Duration("duration", elapsed),
	)

	if flags.format == formatConsole {
		format.RenderSolution(ux.NewPrinter(a.stdout), title(method, flags.input), inst, sol)
		return nil
	}
	return a.writeOutput(flags.output, func(w io.Writer) error {
		return format.WriteSolution(w, sol)
	})
}

func (a *app) runBenchmark(cmd *cobra.Command, flags benchmarkFlags, args []string) error {
	ctx := cmd.Context()
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	method, granularity, err := parseMethodArgs(args)
	if err != nil {
		return err
	}
	inst, err := readInstanceFile(flags.input)
	if err != nil {
		return err
	}
	solver, err := knapsack.NewSolver(method, knapsack.Options{Granularity: granularity, Limits: a.cfg.Limits})
	if err != nil {
		return err
	}

	var store *archive.Store
	if flags.baseline != "" || flags.saveBaseline != "" {
		store, err = a.openArchive()
		if err != nil {
			return err
		}
		defer store.Close()
	}

	opts := flags.runOptions(cmd)
	runner := bench.NewRunner(a.cfg.Benchmark)
	runner.SetLogger(a.logger)
	runner.SetRecorder(a.metrics)
	report, err := runner.Run(ctx, solver, inst, opts...)
	a.metrics.RecordBenchmark(ctx, method, err)
	if err != nil {
		return err
	}

	var cmp *bench.Comparison
	if store != nil {
		cfg := runner.Config()
		for _, opt := range opts {
			opt(&cfg)
		}
		cmp, err = archiveRun(ctx, store, archive.NewKey(inst, method, granularity), report, cfg, flags)
		if err != nil {
			return err
		}
	}

	if flags.format == formatConsole {
		format.RenderReport(ux.NewPrinter(a.stdout), title(method, flags.input), report, cmp)
		return nil
	}
	return a.writeOutput(flags.output, func(w io.Writer) error {
		return format.WriteReport(w, report)
	})
}

// runOptions turns explicitly set flags into runner overrides.
func (f benchmarkFlags) runOptions(cmd *cobra.Command) []bench.RunOption {
	var opts []bench.RunOption
	changed := cmd.Flags().Changed
	if changed("samples") {
		opts = append(opts, bench.WithSamples(f.samples))
	}
	if changed("warmup") {
		opts = append(opts, bench.WithWarmup(f.warmup))
	}
	if changed("resamples") {
		opts = append(opts, bench.WithResamples(f.resamples))
	}
	if changed("confidence-level") {
		opts = append(opts, bench.WithConfidenceLevel(f.confidenceLevel))
	}
	if changed("seed") {
		opts = append(opts, bench.WithSeed(f.seed))
	}
	return opts
}

// archiveRun compares report with the requested baseline, then stores
// it, then promotes it to a baseline when asked.
func archiveRun(ctx context.Context, store *archive.Store, key archive.Key, report *bench.Report, cfg bench.Config, flags benchmarkFlags) (*bench.Comparison, error) {
	var cmp *bench.Comparison
	if flags.baseline != "" {
		var err error
		cmp, _, err = store.Compare(ctx, key, flags.baseline, report, cfg)
		if err != nil {
			return nil, err
		}
	}
	rec := archive.NewRecord(key, report)
	if err := store.Save(ctx, rec); err != nil {
		return nil, err
	}
	if flags.saveBaseline != "" {
		if err := store.SaveBaseline(ctx, flags.saveBaseline, rec); err != nil {
			return nil, err
		}
	}
	return cmp, nil
}

// writeOutput writes to path, or to stdout when path cannot be created.
func (a *app) writeOutput(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		a.logger.Warn("Cannot create output file, writing to stdout",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return write(a.stdout)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readInstanceFile(path string) (*knapsack.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	inst, err := format.ParseInstance(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inst, nil
}

func title(method knapsack.Method, input string) string {
	return fmt.Sprintf("%s on %s", method, filepath.Base(input))
}

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
	"fmt"
	"strconv"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/spf13/cobra"
)

const (
	formatJSON    = "json"
	formatConsole = "console"
)

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "knapsack",
		Short: "Solve and benchmark 0/1 knapsack instances",
		Long: `knapsack solves 0/1 knapsack instances with exact dynamic programming,
branch-and-bound, an expanding-core solver or an FPTAS, and benchmarks them with
bootstrap confidence intervals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Configuration file (default: $KNAPSACK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the configuration file)")
	rootCmd.PersistentFlags().StringVar(&a.archivePath, "archive", "",
		"Benchmark archive directory (overrides the configuration file)")

	rootCmd.AddCommand(
		newRunCmd(a),
		newBenchmarkCmd(a),
		newVerifyCmd(a),
		newSuiteCmd(a),
		newServeCmd(a),
		newBaselineCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// parseMethodArgs reads METHOD [GRANULARITY].
func parseMethodArgs(args []string) (knapsack.Method, int, error) {
	method, err := knapsack.ParseMethod(args[0])
	if err != nil {
		return "", 0, err
	}
	granularity := knapsack.DefaultGranularity
	if len(args) > 1 {
		g, err := strconv.Atoi(args[1])
		if err != nil || g < 1 {
			return "", 0, fmt.Errorf("granularity %q must be a positive integer: %w", args[1], knapsack.ErrInvalidConfiguration)
		}
		granularity = g
	}
	return method, granularity, nil
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatConsole:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSON, formatConsole)
	}
}

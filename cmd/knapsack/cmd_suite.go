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
	"path/filepath"

	"github.com/AleutianAI/knapsack/pkg/ux"
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/suite"
	"github.com/spf13/cobra"
)

type suiteFlags struct {
	methods     []string
	granularity int
	parallelism int
	pattern     string
	format      string
}

func newSuiteCmd(a *app) *cobra.Command {
	var flags suiteFlags
	cmd := &cobra.Command{
		Use:   "suite DIR",
		Short: "Solve every instance in a directory and cross-check the methods",
		Long: `Run the selected methods on every instance file in DIR. Each selection is
verified, exact methods must agree on the optimum, and the FPTAS must not exceed
it. Exits non-zero when any file fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSuite(cmd, flags, args[0])
		},
	}
	cmd.Flags().StringSliceVarP(&flags.methods, "methods", "m", nil, "Methods to run (default: all)")
	cmd.Flags().IntVar(&flags.granularity, "granularity", knapsack.DefaultGranularity, "FPTAS granularity K")
	cmd.Flags().IntVarP(&flags.parallelism, "parallelism", "p", 0, "Files solved at once (default from configuration)")
	cmd.Flags().StringVar(&flags.pattern, "pattern", "*", "File name pattern")
	cmd.Flags().StringVar(&flags.format, "format", formatConsole, "Output format: json or console")
	return cmd
}

func (a *app) runSuite(cmd *cobra.Command, flags suiteFlags, dir string) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	methods := make([]knapsack.Method, 0, len(flags.methods))
	for _, name := range flags.methods {
		m, err := knapsack.ParseMethod(name)
		if err != nil {
			return err
		}
		methods = append(methods, m)
	}
	parallelism := a.cfg.Suite.Parallelism
	if cmd.Flags().Changed("parallelism") {
		parallelism = flags.parallelism
	}

	report, err := suite.Run(cmd.Context(), dir, suite.Options{
		Methods:     methods,
		Granularity: flags.granularity,
		Limits:      a.cfg.Limits,
		Parallelism: parallelism,
		Pattern:     flags.pattern,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}

	if flags.format == formatJSON {
		if err := a.encodeJSON(report); err != nil {
			return err
		}
	} else {
		renderSuite(ux.NewPrinter(a.stdout), report)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d instances failed", report.Failed, len(report.Files))
	}
	return nil
}

func renderSuite(p *ux.Printer, report *suite.Report) {
	p.Title("suite " + report.Dir)
	for i := range report.Files {
		f := &report.Files[i]
		name := filepath.Base(f.Path)
		if !f.Passed() {
			p.Status(ux.IconError, fmt.Sprintf("%s: %s", name, f.FirstError()))
			continue
		}
		optimum := "-"
		if f.Optimum != nil {
			optimum = fmt.Sprintf("%d", *f.Optimum)
		}
		p.Status(ux.IconSuccess, fmt.Sprintf("%s: n=%d capacity=%d optimum=%s", name, f.Items, f.Capacity, optimum))
		for _, r := range f.Results {
			p.Field("  "+string(r.Method), fmt.Sprintf("%d in %s", r.Solution.TotalValue, r.Duration))
		}
	}
	p.Summary(report.Passed, report.Failed, len(report.Files))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/knapsack/pkg/ux"
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
)

// RenderSolution prints a human-readable summary of sol.
func RenderSolution(p *ux.Printer, title string, inst *knapsack.Instance, sol *knapsack.Solution) {
	p.Title(title)
	p.Field("total value", fmt.Sprintf("%d", sol.TotalValue))
	p.Field("total weight", fmt.Sprintf("%d / %d", sol.TotalWeight(inst), inst.Capacity))
	p.Field("items", fmt.Sprintf("%d of %d", len(sol.Items), inst.Len()))
	p.Field("selection", joinInts(sol.Items))
}

// RenderReport prints the estimates of report and, when cmp is not nil,
// the change against a baseline.
func RenderReport(p *ux.Printer, title string, report *bench.Report, cmp *bench.Comparison) {
	p.Title(title)
	p.Field("samples", fmt.Sprintf("%d", len(report.Samples)))
	p.Box("estimates", []string{
		estimateLine("mean", report.Mean),
		estimateLine("median", report.Median),
		estimateLine("std_dev", report.StdDev),
	})
	if cmp == nil {
		return
	}

	ci := cmp.Change.ConfidenceInterval
	p.Field("change", fmt.Sprintf("%+.2f%% [%+.2f%%, %+.2f%%]",
		100*cmp.Change.PointEstimate, 100*ci.LowerBound, 100*ci.UpperBound))
	p.Field("p-value", fmt.Sprintf("%.4f", cmp.PValue))
	switch cmp.Verdict {
	case bench.VerdictImproved:
		p.Status(ux.IconSuccess, "performance has improved")
	case bench.VerdictRegressed:
		p.Status(ux.IconError, "performance has regressed")
	case bench.VerdictNoise:
		p.Status(ux.IconWarning, "change within noise threshold")
	default:
		p.Status(ux.IconBullet, "no change in performance detected")
	}
}

func estimateLine(name string, e bench.Estimate) string {
	ci := e.ConfidenceInterval
	return fmt.Sprintf("%-8s %s  [%s, %s]  se=%s  (%.0f%% CI)",
		name, nanos(e.PointEstimate), nanos(ci.LowerBound), nanos(ci.UpperBound),
		nanos(e.StandardError), 100*ci.ConfidenceLevel)
}

func nanos(ns float64) string {
	return time.Duration(ns).Round(time.Nanosecond).String()
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "none"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, " ")
}

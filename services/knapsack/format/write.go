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
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
)

// WriteInstance writes inst in the plain-text format accepted by
// ParseInstance, with the item count and capacity on the first line.
func WriteInstance(w io.Writer, inst *knapsack.Instance) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", inst.Len(), inst.Capacity)
	for _, it := range inst.Items {
		fmt.Fprintf(bw, "%d %d\n", it.Value, it.Weight)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing instance: %w", err)
	}
	return nil
}

// WriteSolution writes sol as {"items": [...], "total_value": n}.
// A nil item list is written as [].
func WriteSolution(w io.Writer, sol *knapsack.Solution) error {
	out := *sol
	if out.Items == nil {
		out.Items = []int{}
	}
	return writeJSON(w, out)
}

// ReadSolution decodes a solution document. Unknown fields are rejected.
func ReadSolution(r io.Reader) (*knapsack.Solution, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var sol knapsack.Solution
	if err := dec.Decode(&sol); err != nil {
		return nil, fmt.Errorf("decoding solution: %w", err)
	}
	if sol.Items == nil {
		sol.Items = []int{}
	}
	return &sol, nil
}

// WriteReport writes the mean, median and std_dev estimates of report.
func WriteReport(w io.Writer, report *bench.Report) error {
	return writeJSON(w, report)
}

// ReadReport decodes a benchmark report document.
func ReadReport(r io.Reader) (*bench.Report, error) {
	var report bench.Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &report, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

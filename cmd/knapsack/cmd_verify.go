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
	"os"

	"github.com/AleutianAI/knapsack/pkg/ux"
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/format"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "verify [SOLUTION]",
		Short: "Check a solution file against its instance",
		Long: `Re-check a solution written by "knapsack run" (default out.json): every
index is in range and distinct, the weight fits the capacity, and total_value
equals the sum of the selected values.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			solutionPath := "out.json"
			if len(args) == 1 {
				solutionPath = args[0]
			}
			return a.runVerify(input, solutionPath)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Instance file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) runVerify(input, solutionPath string) error {
	inst, err := readInstanceFile(input)
	if err != nil {
		return err
	}
	f, err := os.Open(solutionPath)
	if err != nil {
		return err
	}
	defer f.Close()
	sol, err := format.ReadSolution(f)
	if err != nil {
		return fmt.Errorf("%s: %w", solutionPath, err)
	}

	p := ux.NewPrinter(a.stdout)
	if err := knapsack.Verify(inst, sol); err != nil {
		p.Status(ux.IconError, fmt.Sprintf("%s: %v", solutionPath, err))
		return fmt.Errorf("%s does not solve %s: %w", solutionPath, input, err)
	}
	p.Status(ux.IconSuccess, fmt.Sprintf("%s: %d items, total value %d, weight %d / %d",
		solutionPath, len(sol.Items), sol.TotalValue, sol.TotalWeight(inst), inst.Capacity))
	return nil
}

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
	"encoding/json"
	"fmt"
	"time"

	"github.com/AleutianAI/knapsack/pkg/ux"
	"github.com/AleutianAI/knapsack/services/knapsack/archive"
	"github.com/spf13/cobra"
)

func newBaselineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Inspect stored baselines and run history",
	}
	cmd.AddCommand(newBaselineListCmd(a), newBaselineHistoryCmd(a), newBaselineDeleteCmd(a))
	return cmd
}

func newBaselineListCmd(a *app) *cobra.Command {
	var outFormat string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(outFormat); err != nil {
				return err
			}
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Baselines(cmd.Context())
			if err != nil {
				return err
			}
			if outFormat == formatJSON {
				return a.encodeJSON(entries)
			}
			p := ux.NewPrinter(a.stdout)
			p.Title("baselines")
			if len(entries) == 0 {
				p.Status(ux.IconBullet, "no baselines stored")
				return nil
			}
			for _, e := range entries {
				p.Field(e.Name, fmt.Sprintf("%s  run %s  %s", e.Key, e.RunID, e.CreatedAt.Format(time.RFC3339)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outFormat, "format", formatConsole, "Output format: json or console")
	return cmd
}

func newBaselineHistoryCmd(a *app) *cobra.Command {
	var (
		input     string
		limit     int
		outFormat string
	)
	cmd := &cobra.Command{
		Use:   "history METHOD [GRANULARITY]",
		Short: "Show archived runs of a method on an instance, newest first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(outFormat); err != nil {
				return err
			}
			key, err := archiveKey(input, args)
			if err != nil {
				return err
			}
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.History(cmd.Context(), key, limit)
			if err != nil {
				return err
			}
			if outFormat == formatJSON {
				return a.encodeJSON(records)
			}
			p := ux.NewPrinter(a.stdout)
			p.Title("history " + key.String())
			for _, rec := range records {
				mean := rec.Report.Mean
				p.Field(rec.CreatedAt.Format(time.RFC3339), fmt.Sprintf("mean %s ± %s  run %s",
					time.Duration(mean.PointEstimate), time.Duration(mean.StandardError), rec.RunID))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Instance file")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum runs to show (0 for all)")
	cmd.Flags().StringVar(&outFormat, "format", formatConsole, "Output format: json or console")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newBaselineDeleteCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "delete NAME METHOD [GRANULARITY]",
		Short: "Delete a named baseline of a method on an instance",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := archiveKey(input, args[1:])
			if err != nil {
				return err
			}
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteBaseline(cmd.Context(), key, args[0]); err != nil {
				return err
			}
			ux.NewPrinter(a.stdout).Status(ux.IconSuccess, fmt.Sprintf("deleted baseline %q for %s", args[0], key))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Instance file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// archiveKey identifies METHOD [GRANULARITY] on the instance at input.
func archiveKey(input string, args []string) (archive.Key, error) {
	method, granularity, err := parseMethodArgs(args)
	if err != nil {
		return archive.Key{}, err
	}
	inst, err := readInstanceFile(input)
	if err != nil {
		return archive.Key{}, err
	}
	return archive.NewKey(inst, method, granularity), nil
}

func (a *app) encodeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

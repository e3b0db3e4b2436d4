// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knapsack

import (
	"fmt"
	"math/bits"
)

const (
	// defaultMaxTableBytes caps DP tables when the process has no
	// address-space limit.
	defaultMaxTableBytes = 2 << 30

	// defaultMaxSearchFrames caps the branch-and-bound work stack.
	defaultMaxSearchFrames = 1 << 24
)

// Limits bounds the memory and search effort of a single solve.
//
// A zero field means "use the default" for MaxTableBytes and
// MaxSearchFrames, and "unlimited" for MaxNodes.
type Limits struct {
	// MaxTableBytes is the largest DP table a solver may allocate.
	MaxTableBytes uint64 `json:"max_table_bytes" yaml:"max_table_bytes"`

	// MaxSearchFrames is the deepest work stack branch-and-bound may use.
	MaxSearchFrames int `json:"max_search_frames" yaml:"max_search_frames"`

	// MaxNodes bounds the number of search nodes branch-and-bound explores.
	MaxNodes uint64 `json:"max_nodes" yaml:"max_nodes"`
}

// DefaultLimits returns limits derived from the process environment.
//
// Description:
//
//	When the process runs under a finite address-space rlimit, the table
//	budget is half of it. Otherwise the budget is 2 GiB.
//
// Outputs:
//   - Limits: Ready-to-use limits.
func DefaultLimits() Limits {
	tableBytes := uint64(defaultMaxTableBytes)
	if limit, ok := addressSpaceLimit(); ok && limit/2 < tableBytes {
		tableBytes = limit / 2
	}
	return Limits{
		MaxTableBytes:   tableBytes,
		MaxSearchFrames: defaultMaxSearchFrames,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	if l.MaxTableBytes != 0 && l.MaxSearchFrames != 0 {
		return l
	}
	def := DefaultLimits()
	if l.MaxTableBytes == 0 {
		l.MaxTableBytes = def.MaxTableBytes
	}
	if l.MaxSearchFrames == 0 {
		l.MaxSearchFrames = def.MaxSearchFrames
	}
	return l
}

// checkTable verifies that rows×cols cells of cellBits bits each, plus
// extra bytes, fit in the table budget. Overflowing products count as
// exceeding it.
func (l Limits) checkTable(what string, rows, cols uint64, cellBits uint64, extra uint64) error {
	hi, cells := bits.Mul64(rows, cols)
	if hi != 0 {
		return fmt.Errorf("%s table of %d×%d cells: %w", what, rows, cols, ErrResourceExhausted)
	}
	hi, totalBits := bits.Mul64(cells, cellBits)
	if hi != 0 {
		return fmt.Errorf("%s table of %d cells: %w", what, cells, ErrResourceExhausted)
	}
	size, carry := bits.Add64(totalBits/8+1, extra, 0)
	if carry != 0 || size > l.MaxTableBytes {
		return fmt.Errorf("%s table needs %d bytes, limit %d: %w", what, size, l.MaxTableBytes, ErrResourceExhausted)
	}
	return nil
}

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
	"strings"
)

// Method names a solving strategy.
type Method string

const (
	// MethodDP is exact dynamic programming over capacities.
	MethodDP Method = "dp"

	// MethodBranchAndBound is exact depth-first branch-and-bound.
	MethodBranchAndBound Method = "bkt"

	// MethodFPTAS is value-scaling approximation.
	MethodFPTAS Method = "fptas"

	// MethodMinKnap is exact expanding-core dynamic programming.
	MethodMinKnap Method = "minknap"
)

// DefaultGranularity is the FPTAS granularity used when none is given.
const DefaultGranularity = 1

// Methods returns every supported method in a stable order.
func Methods() []Method {
	return []Method{MethodDP, MethodBranchAndBound, MethodFPTAS, MethodMinKnap}
}

// ParseMethod converts a method name to a Method. Matching ignores case.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown method %q: %w", name, ErrInvalidConfiguration)
}

// String returns the method name.
func (m Method) String() string {
	return string(m)
}

// Exact reports whether the method always returns an optimal selection.
func (m Method) Exact() bool {
	return m != MethodFPTAS
}

// Options configures NewSolver.
type Options struct {
	// Granularity is the FPTAS K. Ignored by the other methods.
	Granularity int

	// Limits bounds memory and search effort. Zero fields take defaults.
	Limits Limits
}

// NewSolver creates the solver for m.
//
// Outputs:
//   - Solver: The solver. Nil on error.
//   - error: ErrInvalidConfiguration (wrapped) for an unknown method or an
//     FPTAS granularity below 1.
func NewSolver(m Method, opts Options) (Solver, error) {
	switch m {
	case MethodDP:
		return NewDPSolver(opts.Limits), nil
	case MethodBranchAndBound:
		return NewBranchAndBoundSolver(opts.Limits), nil
	case MethodFPTAS:
		solver, err := NewFPTASSolver(opts.Granularity, opts.Limits)
		if err != nil {
			return nil, err
		}
		return solver, nil
	case MethodMinKnap:
		return NewMinKnapSolver(opts.Limits), nil
	default:
		return nil, fmt.Errorf("unknown method %q: %w", m, ErrInvalidConfiguration)
	}
}

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

import "errors"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrMalformedInstance indicates the instance violates its structural
	// invariants: wrong item count, unparseable or out of range numbers,
	// or item indices that do not match their positions.
	ErrMalformedInstance = errors.New("malformed instance")

	// ErrInvalidConfiguration indicates a solver or method was configured
	// with unusable parameters, such as an FPTAS granularity below 1 or an
	// unknown method name.
	ErrInvalidConfiguration = errors.New("invalid solver configuration")

	// ErrResourceExhausted indicates a solve would exceed the configured
	// memory or search limits.
	ErrResourceExhausted = errors.New("resource limit exceeded")

	// ErrVerificationFailed indicates a claimed solution is not a feasible
	// selection with the claimed value.
	ErrVerificationFailed = errors.New("solution verification failed")
)

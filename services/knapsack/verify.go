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

import "fmt"

// Verify checks that sol is a feasible selection for inst with the value
// it claims.
//
// Description:
//
//	Every index must be in range and appear once, the selected weight must
//	not exceed the capacity, and TotalValue must equal the sum of the
//	selected values. Optimality is not checked.
//
// Inputs:
//   - inst: The instance the solution claims to solve.
//   - sol: The claimed solution.
//
// Outputs:
//   - error: Nil if the claim holds. Otherwise wraps ErrVerificationFailed
//     (or ErrMalformedInstance for a bad instance).
func Verify(inst *Instance, sol *Solution) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if sol == nil {
		return fmt.Errorf("nil solution: %w", ErrVerificationFailed)
	}

	seen := make([]bool, len(inst.Items))
	var weight, value uint64
	for _, idx := range sol.Items {
		if idx < 0 || idx >= len(inst.Items) {
			return fmt.Errorf("item index %d out of range [0, %d): %w", idx, len(inst.Items), ErrVerificationFailed)
		}
		if seen[idx] {
			return fmt.Errorf("item %d selected twice: %w", idx, ErrVerificationFailed)
		}
		seen[idx] = true
		weight += uint64(inst.Items[idx].Weight)
		value += uint64(inst.Items[idx].Value)
	}

	if weight > inst.Capacity {
		return fmt.Errorf("weight %d exceeds capacity %d: %w", weight, inst.Capacity, ErrVerificationFailed)
	}
	if value != sol.TotalValue {
		return fmt.Errorf("selected value %d, claimed %d: %w", value, sol.TotalValue, ErrVerificationFailed)
	}
	return nil
}

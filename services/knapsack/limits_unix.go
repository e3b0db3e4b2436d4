// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build linux || darwin || freebsd

package knapsack

import "golang.org/x/sys/unix"

// addressSpaceLimit returns the soft RLIMIT_AS of the process, if finite.
func addressSpaceLimit() (uint64, bool) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &rlimit); err != nil {
		return 0, false
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return 0, false
	}
	return uint64(rlimit.Cur), true
}

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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	assert.Greater(t, limits.MaxTableBytes, uint64(0))
	assert.LessOrEqual(t, limits.MaxTableBytes, uint64(defaultMaxTableBytes))
	assert.Equal(t, defaultMaxSearchFrames, limits.MaxSearchFrames)
	assert.Zero(t, limits.MaxNodes)
}

func TestLimits_WithDefaults(t *testing.T) {
	limits := Limits{MaxNodes: 7}.withDefaults()
	assert.NotZero(t, limits.MaxTableBytes)
	assert.NotZero(t, limits.MaxSearchFrames)
	assert.Equal(t, uint64(7), limits.MaxNodes)

	custom := Limits{MaxTableBytes: 10, MaxSearchFrames: 3}.withDefaults()
	assert.Equal(t, uint64(10), custom.MaxTableBytes)
	assert.Equal(t, 3, custom.MaxSearchFrames)
}

func TestLimits_CheckTable(t *testing.T) {
	limits := Limits{MaxTableBytes: 1 << 20}

	assert.NoError(t, limits.checkTable("t", 100, 1000, 1, 8000))
	assert.ErrorIs(t, limits.checkTable("t", 1<<20, 1<<10, 8, 0), ErrResourceExhausted)
	assert.ErrorIs(t, limits.checkTable("t", math.MaxUint64, 2, 1, 0), ErrResourceExhausted)
	assert.ErrorIs(t, limits.checkTable("t", 1<<40, 1<<30, 1, 0), ErrResourceExhausted)
	assert.ErrorIs(t, limits.checkTable("t", 1, 1, 1, math.MaxUint64), ErrResourceExhausted)
}

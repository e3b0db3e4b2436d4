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
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstance(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		capacity uint64
		values   []uint32
		weights  []uint32
	}{
		{
			name:     "header on one line",
			input:    "3 50\n60 10\n100 20\n120 30\n",
			capacity: 50,
			values:   []uint32{60, 100, 120},
			weights:  []uint32{10, 20, 30},
		},
		{
			name:     "count and capacity on separate lines",
			input:    "2\n9\n5 4\n7 5\n",
			capacity: 9,
			values:   []uint32{5, 7},
			weights:  []uint32{4, 5},
		},
		{
			name:     "blank lines and mixed whitespace",
			input:    "\n\n2\t7\r\n\n  3   2 \n\t4\t3\n\n",
			capacity: 7,
			values:   []uint32{3, 4},
			weights:  []uint32{2, 3},
		},
		{
			name:     "no trailing newline",
			input:    "1 5\n9 5",
			capacity: 5,
			values:   []uint32{9},
			weights:  []uint32{5},
		},
		{
			name:     "zero items",
			input:    "0 100\n",
			capacity: 100,
		},
		{
			name:     "zeros accepted",
			input:    "2 0\n0 0\n4294967295 4294967295\n",
			capacity: 0,
			values:   []uint32{0, 4294967295},
			weights:  []uint32{0, 4294967295},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := ParseInstance(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.NoError(t, inst.Validate())

			assert.Equal(t, tt.capacity, inst.Capacity)
			require.Equal(t, len(tt.values), inst.Len())
			for i, it := range inst.Items {
				assert.Equal(t, i, it.Index)
				assert.Equal(t, tt.values[i], it.Value)
				assert.Equal(t, tt.weights[i], it.Weight)
			}
		})
	}
}

func TestParseInstance_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "empty input"},
		{"only blank lines", "\n \n\t\n", "empty input"},
		{"too few items", "3 10\n1 1\n2 2\n", "declares 3 items but 2"},
		{"too many items", "1 10\n1 1\n2 2\n", "line 3"},
		{"missing capacity", "2\n", "missing capacity"},
		{"capacity line with two fields", "2\n5 6\n1 1\n1 1\n", "expected capacity"},
		{"header with three fields", "1 2 3\n", "line 1"},
		{"item with one field", "1 10\n5\n", "line 2"},
		{"item with three fields", "1 10\n5 6 7\n", "line 2"},
		{"negative value", "1 10\n-5 6\n", "invalid value"},
		{"non numeric weight", "1 10\n5 x\n", "invalid weight"},
		{"value overflows u32", "1 10\n4294967296 1\n", "invalid value"},
		{"bad count", "two 10\n", "invalid item count"},
		{"bad capacity", "1 -1\n1 1\n", "invalid capacity"},
		{"float weight", "1 10\n5 1.5\n", "invalid weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := ParseInstance(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, inst)
			assert.ErrorIs(t, err, knapsack.ErrMalformedInstance)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseInstance_ReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := ParseInstance(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, knapsack.ErrMalformedInstance)
}

func TestParseInstance_HugeDeclaredCount(t *testing.T) {
	_, err := ParseInstance(strings.NewReader("18446744073709551615 10\n1 1\n"))
	assert.ErrorIs(t, err, knapsack.ErrMalformedInstance)
}

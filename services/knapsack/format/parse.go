// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package format reads and writes the knapsack file formats: the plain-text
// instance format and the JSON solution and benchmark report documents.
package format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/knapsack/services/knapsack"
)

// maxPrealloc caps the item slice capacity taken from an untrusted header.
const maxPrealloc = 1 << 16

// line is one non-blank input line with its 1-based position.
type line struct {
	num    int
	fields []string
}

// ParseInstance reads an instance in the plain-text format.
//
// Description:
//
//	The first non-blank line holds the item count and the capacity. The two
//	numbers may also appear on separate lines. Exactly item-count lines of
//	"<value> <weight>" follow; item i is the i-th such line. Blank lines are
//	ignored anywhere, fields may be separated by any whitespace.
//
// Inputs:
//
//	r - Source of the instance text.
//
// Outputs:
//
//	*knapsack.Instance - The parsed instance with Items[i].Index == i.
//	error - Wraps knapsack.ErrMalformedInstance on any format violation,
//	        or the underlying read error.
func ParseInstance(r io.Reader) (*knapsack.Instance, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty input: %w", knapsack.ErrMalformedInstance)
	}

	count, capacity, rest, err := parseHeader(lines)
	if err != nil {
		return nil, err
	}
	if uint64(len(rest)) < count {
		return nil, fmt.Errorf("header declares %d items but %d item lines follow: %w",
			count, len(rest), knapsack.ErrMalformedInstance)
	}
	if uint64(len(rest)) > count {
		extra := rest[count]
		return nil, fmt.Errorf("line %d: unexpected content after %d items: %w",
			extra.num, count, knapsack.ErrMalformedInstance)
	}

	inst := &knapsack.Instance{
		Capacity: capacity,
		Items:    make([]knapsack.Item, 0, min(count, maxPrealloc)),
	}
	for i, ln := range rest {
		if len(ln.fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"<value> <weight>\", got %d fields: %w",
				ln.num, len(ln.fields), knapsack.ErrMalformedInstance)
		}
		value, err := parseUint32(ln, ln.fields[0], "value")
		if err != nil {
			return nil, err
		}
		weight, err := parseUint32(ln, ln.fields[1], "weight")
		if err != nil {
			return nil, err
		}
		inst.Items = append(inst.Items, knapsack.Item{Index: i, Weight: weight, Value: value})
	}
	return inst, nil
}

func readLines(r io.Reader) ([]line, error) {
	var lines []line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	num := 0
	for sc.Scan() {
		num++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, line{num: num, fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading instance: %w", err)
	}
	return lines, nil
}

// parseHeader returns the item count, the capacity and the remaining lines.
func parseHeader(lines []line) (uint64, uint64, []line, error) {
	head := lines[0]
	switch len(head.fields) {
	case 2:
		count, err := parseUint64(head, head.fields[0], "item count")
		if err != nil {
			return 0, 0, nil, err
		}
		capacity, err := parseUint64(head, head.fields[1], "capacity")
		if err != nil {
			return 0, 0, nil, err
		}
		return count, capacity, lines[1:], nil
	case 1:
		count, err := parseUint64(head, head.fields[0], "item count")
		if err != nil {
			return 0, 0, nil, err
		}
		if len(lines) < 2 {
			return 0, 0, nil, fmt.Errorf("line %d: missing capacity: %w", head.num, knapsack.ErrMalformedInstance)
		}
		next := lines[1]
		if len(next.fields) != 1 {
			return 0, 0, nil, fmt.Errorf("line %d: expected capacity, got %d fields: %w",
				next.num, len(next.fields), knapsack.ErrMalformedInstance)
		}
		capacity, err := parseUint64(next, next.fields[0], "capacity")
		if err != nil {
			return 0, 0, nil, err
		}
		return count, capacity, lines[2:], nil
	default:
		return 0, 0, nil, fmt.Errorf("line %d: expected \"<item_count> <capacity>\", got %d fields: %w",
			head.num, len(head.fields), knapsack.ErrMalformedInstance)
	}
}

func parseUint64(ln line, s, what string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s %q: %w", ln.num, what, s, knapsack.ErrMalformedInstance)
	}
	return v, nil
}

func parseUint32(ln line, s, what string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid %s %q: %w", ln.num, what, s, knapsack.ErrMalformedInstance)
	}
	return uint32(v), nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow, IconBullet} {
		if got := icon.Render(); !strings.Contains(got, string(icon)) {
			t.Errorf("Render(%q) = %q, missing icon", icon, got)
		}
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	if !NewPrinter(&buf).Plain() {
		t.Error("expected a non-terminal writer to get a plain printer")
	}
	if IsTerminal(&buf) {
		t.Error("bytes.Buffer reported as terminal")
	}
}

func TestPrinter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Title("Benchmark")
	p.Status(IconSuccess, "verified")
	p.Status(IconError, "mismatch")
	p.Field("mean", "1.2ms")
	p.Box("dp", []string{"line one", "line two"})
	p.Summary(3, 1, 4)

	want := strings.Join([]string{
		"# Benchmark",
		"OK: verified",
		"ERROR: mismatch",
		"mean\t1.2ms",
		"[dp]",
		"line one",
		"line two",
		"SUMMARY: passed=3 failed=1 total=4",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("plain output mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestPrinter_RichOutputContainsText(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf}

	p.Title("Benchmark")
	p.Field("median", "3ms")
	p.Status(IconWarning, "slow")

	out := buf.String()
	for _, s := range []string{"Benchmark", "median", "3ms", "slow"} {
		if !strings.Contains(out, s) {
			t.Errorf("rich output missing %q: %q", s, out)
		}
	}
}

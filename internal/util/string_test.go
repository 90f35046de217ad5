// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// =============================================================================
// STRING UTILITY TESTS
// =============================================================================

func TestEllipsize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short unchanged", "hello", 30, "hello"},
		{"exact length unchanged", strings.Repeat("a", 30), 30, strings.Repeat("a", 30)},
		{"long truncated with marker", strings.Repeat("a", 45), 30, strings.Repeat("a", 30) + "..."},
		{"zero max", "hello", 0, ""},
		{"multibyte counted as runes", "日本語テキスト", 3, "日本語..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ellipsize(tt.in, tt.max); got != tt.want {
				t.Errorf("Ellipsize(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes_NoMidCharacterSplit(t *testing.T) {
	got := TruncateRunes("héllo", 2)
	if got != "hé" {
		t.Errorf("TruncateRunes = %q, want hé", got)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 5); got != "ab   " {
		t.Errorf("PadRight = %q", got)
	}
	// Double-width characters consume two columns
	if got := PadRight("日本", 6); got != "日本  " {
		t.Errorf("PadRight(CJK) = %q", got)
	}
	// Already wide enough
	if got := PadRight("abcdef", 3); got != "abcdef" {
		t.Errorf("PadRight(no-op) = %q", got)
	}
}

func TestStringWidth(t *testing.T) {
	if w := StringWidth("abc"); w != 3 {
		t.Errorf("StringWidth(abc) = %d, want 3", w)
	}
	if w := StringWidth("日本"); w != 4 {
		t.Errorf("StringWidth(日本) = %d, want 4", w)
	}
}

func TestRuneLen(t *testing.T) {
	if n := RuneLen("héllo"); n != 5 {
		t.Errorf("RuneLen = %d, want 5", n)
	}
}

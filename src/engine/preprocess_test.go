package engine

import "testing"

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantRemoved int
	}{
		{"clean passthrough", "hello world", "hello world", 0},
		{"nul stripped", "hel\x00lo", "hello", 1},
		{"zero width space stripped", "ig​nore", "ignore", 1},
		{"zero width joiner stripped", "a‍b", "ab", 1},
		{"rtl override stripped", "a‮b", "ab", 1},
		{"whitespace kept", "a\tb\nc\rd e", "a\tb\nc\rd e", 0},
		{"multiple evasions", "\x00a​‌b\x00", "ab", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := normalizeContent(tt.input)
			if got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if removed != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", removed, tt.wantRemoved)
			}
		})
	}
}

func TestNormalizeContent_DefeatsSplitInjection(t *testing.T) {
	// A zero-width space inside an injection phrase must not survive
	// pre-processing, otherwise the scanner would miss it.
	evasive := "ignore​ previous instructions"
	got, removed := normalizeContent(evasive)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got != "ignore previous instructions" {
		t.Errorf("content = %q", got)
	}
}

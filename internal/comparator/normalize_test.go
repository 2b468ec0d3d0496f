package comparator

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain value untouched", "hello", "hello"},
		{"surrounding whitespace trimmed", "  hello  ", "hello"},
		{"internal runs collapsed", "a   b\t\tc", "a b c"},
		{"non-breaking space treated as space", "a\u00a0b", "a b"},
		{"non-breaking space run collapsed", "a\u00a0 \u00a0b", "a b"},
		{"combining sequence composed", "Jose\u0301", "Jos\u00e9"},
		{"empty stays empty", "", ""},
		{"whitespace-only collapses to empty", "   \t ", ""},
		{"numeric formatting preserved", "80.0", "80.0"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("%s: Normalize(%q) = %q, expected %q", tt.name, tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"  a   b ", "a\u00a0b", "Jose\u0301", "plain", ""}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

package matcher

import "testing"

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"empty", "", ""},
		{"plain numeric", "1000", "1000"},
		{"leading zeros", "0001000", "1000"},
		{"all zeros", "0000", "0"},
		{"single zero", "0", "0"},
		{"hyphenated", "ACC-001", "acc001"},
		{"underscored", "ACC_001", "acc001"},
		{"spaced", "ACC 001", "acc001"},
		{"dotted", "ACC.001", "acc001"},
		{"slashed", "ACC/001", "acc001"},
		{"mixed case", "AbC123", "abc123"},
		{"separators only", "-_. /", ""},
		{"leading zeros behind prefix kept", "A0001", "a0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCode(tt.code); got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeCodeEquivalences(t *testing.T) {
	equivalent := [][]string{
		{"0001000", "1000", "1-000", "10 00"},
		{"ACC-001", "ACC_001", "ACC 001", "acc.001"},
	}

	for _, group := range equivalent {
		first := NormalizeCode(group[0])
		for _, code := range group[1:] {
			if got := NormalizeCode(code); got != first {
				t.Errorf("NormalizeCode(%q) = %q, want %q (same as %q)", code, got, first, group[0])
			}
		}
	}
}

func TestNormalizeCodeIdempotent(t *testing.T) {
	codes := []string{"", "0001000", "ACC-001", "AbC 1.2/3", "0000"}
	for _, code := range codes {
		once := NormalizeCode(code)
		if twice := NormalizeCode(once); twice != once {
			t.Errorf("NormalizeCode not idempotent for %q: %q then %q", code, once, twice)
		}
	}
}

func TestFoldString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Cash Account", "cashaccount"},
		{"Cash-Account", "cashaccount"},
		{"A/R (net)", "arnet"},
	}

	for _, tt := range tests {
		if got := foldString(tt.in); got != tt.want {
			t.Errorf("foldString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

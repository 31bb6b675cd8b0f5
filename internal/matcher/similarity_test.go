package matcher

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"identical", "cash", "cash", 1.0, 1.0},
		{"both empty", "", "", 1.0, 1.0},
		{"one empty", "cash", "", 0.0, 0.99},
		{"punctuation ignored", "Cash-Account", "Cash Account", 1.0, 1.0},
		{"case ignored", "CASH", "cash", 1.0, 1.0},
		{"close names", "Office Supplies", "Office Supply", 0.7, 0.99},
		{"unrelated", "Cash", "Accounts Payable", 0.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Cash", "Checking"},
		{"Office Supplies", "Office Supply"},
		{"", "cash"},
	}

	for _, pair := range pairs {
		forward := Similarity(pair[0], pair[1])
		backward := Similarity(pair[1], pair[0])
		if forward != backward {
			t.Errorf("Similarity(%q, %q) = %f but reversed = %f", pair[0], pair[1], forward, backward)
		}
	}
}

func TestSimilaritySelfIdentity(t *testing.T) {
	for _, s := range []string{"", "a", "Cash", "Accounts Receivable (net)", "1000"} {
		if got := Similarity(s, s); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, want 1.0", s, s, got)
		}
	}
}

func TestHierarchySimilarity(t *testing.T) {
	tests := []struct {
		name  string
		pathA []string
		pathB []string
		min   float64
		max   float64
	}{
		{"both empty", nil, nil, 1.0, 1.0},
		{"identical", []string{"Assets", "Current"}, []string{"Assets", "Current"}, 1.0, 1.0},
		{"one empty", []string{"Assets"}, nil, 0.0, 0.0},
		{"shared ancestry different leaf", []string{"Assets", "Cash"}, []string{"Assets", "Checking"}, 0.5, 0.9},
		{"different depth", []string{"Assets"}, []string{"Assets", "Current", "Cash"}, 0.3, 0.4},
		{"disjoint", []string{"Assets"}, []string{"Liabilities"}, 0.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HierarchySimilarity(tt.pathA, tt.pathB)
			if got < tt.min || got > tt.max {
				t.Errorf("HierarchySimilarity(%v, %v) = %f, want in [%f, %f]", tt.pathA, tt.pathB, got, tt.min, tt.max)
			}
		})
	}
}

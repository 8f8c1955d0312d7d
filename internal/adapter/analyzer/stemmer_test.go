package analyzer

import "testing"

func TestPorterStemmer_Stem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"caresses", "caress"},
		{"ponies", "poni"},
		{"cats", "cat"},
		{"agreed", "agre"},
		{"hopping", "hop"},
		{"filing", "file"},
		{"happy", "happi"},
		{"relational", "relat"},
		{"revenue", "revenu"},
		{"revenues", "revenu"},
		{"go", "go"},
		{"2024", "2024"},
		{"größe", "größe"},
	}

	s := NewPorterStemmer()
	for _, tt := range tests {
		if got := s.Stem(tt.input); got != tt.expected {
			t.Errorf("Stem(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPorterStemmer_Deterministic(t *testing.T) {
	s := NewPorterStemmer()
	first := s.Stem("conditional")
	for i := 0; i < 50; i++ {
		if got := s.Stem("conditional"); got != first {
			t.Fatalf("Stem is not deterministic: %q then %q", first, got)
		}
	}
}

func TestTokenizer_Stemming(t *testing.T) {
	plain := NewTokenizer()
	stemmed := NewTokenizer(WithStemming(true))

	if got := plain.Tokenize("revenues"); len(got) != 1 || got[0] != "revenues" {
		t.Errorf("expected unstemmed token, got %v", got)
	}

	a := stemmed.Tokenize("Quarterly revenues grows")
	b := stemmed.Tokenize("quarterly revenue growing")
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 tokens each, got %v and %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("token %d: %q and %q should share a stem", i, a[i], b[i])
		}
	}

	if got := NewTokenizer(WithStemming(true), WithStemming(false)).Tokenize("revenues"); got[0] != "revenues" {
		t.Errorf("later option should disable stemming, got %v", got)
	}
}

package textutil_test

import (
	"testing"

	"segno/internal/textutil"
)

func TestSimilarityIdenticalHeaders(t *testing.T) {
	if got := textutil.Similarity("Clarinet in Bb 2", "Clarinet in Bb 2"); got < 0.999 {
		t.Fatalf("expected near-1 similarity, got %f", got)
	}
}

func TestSimilarityDistinctParts(t *testing.T) {
	same := textutil.Similarity("Trumpet in Bb 1", "Trumpet in Bb 1")
	cross := textutil.Similarity("Trumpet in Bb 1", "Tuba")
	if cross >= same {
		t.Fatalf("expected cross-part similarity below identity: cross=%f same=%f", cross, same)
	}
	if cross > 0.3 {
		t.Fatalf("expected low similarity between unrelated headers, got %f", cross)
	}
}

func TestSimilarityPartNumberMatters(t *testing.T) {
	one := textutil.Similarity("Horn in F 1", "Horn in F 2")
	if one >= 0.999 {
		t.Fatalf("expected part number to lower similarity, got %f", one)
	}
	if one < 0.5 {
		t.Fatalf("expected related headers to remain similar, got %f", one)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := textutil.Similarity("", "Flute"); got != 0 {
		t.Fatalf("expected 0 for empty text, got %f", got)
	}
	if textutil.NewFingerprint("   ") != nil {
		t.Fatal("expected nil fingerprint for whitespace")
	}
}

func TestTokenizeKeepsShortTokens(t *testing.T) {
	tokens := textutil.Tokenize("Oboe 2 (in C)")
	want := []string{"oboe", "2", "in", "c"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", tokens, want)
		}
	}
}

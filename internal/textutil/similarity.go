package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 when either fingerprint is nil or empty.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b.tokens) < len(a.tokens) {
		smaller, larger = b, a
	}
	var dot float64
	for token, count := range smaller.tokens {
		if other, ok := larger.tokens[token]; ok {
			dot += count * other
		}
	}
	return dot / (a.norm * b.norm)
}

// Similarity is a convenience wrapper that fingerprints both texts.
func Similarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}

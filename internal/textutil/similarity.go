package textutil

// CosineSimilarity returns the cosine of the angle between two fingerprints,
// in [0,1]. Nil or zero-norm fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	if len(b.tokens) < len(a.tokens) {
		a, b = b, a
	}
	var dot float64
	for token, w := range a.tokens {
		dot += w * b.tokens[token]
	}
	return min(dot/(a.norm*b.norm), 1)
}

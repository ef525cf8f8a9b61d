// Package textutil provides text normalization, token fingerprints, and
// similarity scoring for article search, plus filename sanitization for
// uploaded media.
//
// Normalization decomposes text (NFKD), drops combining marks, and case-folds,
// so "Café" and "CAFE" tokenize identically. Fingerprints are term-frequency
// vectors that can be reweighted with corpus IDF before cosine comparison.
// Tokenization splits on anything that is not a letter or digit and drops
// tokens shorter than 3 characters.
package textutil

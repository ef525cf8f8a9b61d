package textutil

import (
	"math"
	"strings"
	"unicode"
)

const minTokenLength = 3

// Fingerprint is a weighted term vector.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint builds a term-frequency fingerprint from text.
// Returns nil if the text produces no tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return newFingerprint(counts)
}

func newFingerprint(weights map[string]float64) *Fingerprint {
	var sum float64
	for _, w := range weights {
		sum += w * w
	}
	if len(weights) == 0 {
		return nil
	}
	return &Fingerprint{tokens: weights, norm: math.Sqrt(sum)}
}

// Tokenize normalizes text and splits it into tokens of at least 3 runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < minTokenLength {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// WithIDF returns a copy weighted by idf. Terms missing from idf keep their
// weight; terms whose weight drops to zero are removed.
func (f *Fingerprint) WithIDF(idf map[string]float64) *Fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weighted := make(map[string]float64, len(f.tokens))
	for token, count := range f.tokens {
		w := count
		if factor, ok := idf[token]; ok {
			w *= factor
		}
		if w > 0 {
			weighted[token] = w
		}
	}
	return newFingerprint(weighted)
}

// Corpus collects document frequencies for IDF weighting.
type Corpus struct {
	docCount int
	docFreq  map[string]int
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{docFreq: make(map[string]int)}
}

// Add registers a document's distinct terms.
func (c *Corpus) Add(fp *Fingerprint) {
	if c == nil || fp == nil {
		return
	}
	c.docCount++
	for token := range fp.tokens {
		c.docFreq[token]++
	}
}

// Len returns the number of documents added.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return c.docCount
}

// IDF returns smoothed weights 1+log((N+1)/(1+df)), so terms present in
// every document still contribute.
func (c *Corpus) IDF() map[string]float64 {
	if c == nil || c.docCount == 0 {
		return nil
	}
	idf := make(map[string]float64, len(c.docFreq))
	n := float64(c.docCount)
	for term, df := range c.docFreq {
		idf[term] = 1 + math.Log((n+1)/(1+float64(df)))
	}
	return idf
}

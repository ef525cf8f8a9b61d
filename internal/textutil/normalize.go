package textutil

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case and strips diacritics. Transformers are not safe for
// concurrent use, so a chain is built per call.
func Normalize(text string) string {
	chain := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(chain, text)
	if err != nil {
		return text
	}
	return out
}

// Package search finds fact-check articles related to a text query.
//
// Articles are loaded from a JSON file validated against an embedded schema.
// HTML in article bodies is reduced to text, every document is normalized and
// fingerprinted with TF-IDF weights, and queries are ranked by cosine
// similarity. A missing articles file yields an empty index; an invalid one is
// reported and the previous index is kept. Watch reloads the index when the
// file changes.
package search

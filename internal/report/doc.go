// Package report merges pipeline outputs into the response returned to
// callers. Assemble is pure: it performs no I/O and never fails.
package report

// Package classify holds the model-backed analysis boundaries: frame
// classification, text classification, and synthetic-voice detection.
//
// Each boundary is an interface with a real adapter and a stub. Callers go
// through the Safe* helpers, which turn any error or panic from an adapter into
// a typed result with Label "unknown" and the error message, so one failing
// model never aborts an analysis.
package classify

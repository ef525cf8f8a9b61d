// Package metadata turns probing-tool output into the canonical media
// description consumed by risk scoring and reporting.
//
// Two strategies produce the same Metadata shape: FromProbe canonicalizes an
// ffprobe JSON result, and FromDiagnostic scrapes ffmpeg's stderr summary. The
// Extractor runs them in order under a bounded timeout and records every failed
// attempt, so callers can see which path produced the result without relying on
// errors. Extract never fails.
package metadata

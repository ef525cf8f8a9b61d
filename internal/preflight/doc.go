// Package preflight provides readiness checks for the external services and
// filesystem paths truthx depends on.
//
// The "truthx status" command renders every check, and "truthx serve" runs
// RunAll at startup and logs failures without refusing to start: each
// collaborator degrades on its own when unavailable.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight

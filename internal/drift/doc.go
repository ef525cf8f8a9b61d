// Package drift builds the per-segment trust timeline shown alongside a report.
//
// When the frame classifier produced per-frame probabilities the series is
// measured from them; otherwise it is estimated around the assessment score.
package drift

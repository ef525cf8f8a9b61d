// Package risk converts canonical media metadata, plus an optional
// frame-classifier verdict, into an explainable authenticity assessment.
//
// Scoring starts at 100 and each rule that fires appends one Flag and
// subtracts a fixed penalty. Rules are independent and additive; the final
// score is clamped to [0,100] and the level is always derived from it via
// LevelFor. Nothing in this package returns an error.
package risk

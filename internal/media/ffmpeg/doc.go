// Package ffmpeg wraps the two ffmpeg invocations the analysis pipeline needs:
// Diagnose captures the stderr stream summary used as the text-probe fallback,
// and SampleFrames decodes scaled RGB frames for the frame classifier.
package ffmpeg

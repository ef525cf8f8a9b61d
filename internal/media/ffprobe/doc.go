// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties, including tags
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Entry points:
//   - Inspect: executes ffprobe with a fixed argument set and returns the parsed Result
//   - Parse: decodes an existing ffprobe JSON document
//   - FrameRate: converts "num/den" rationals into frames per second
package ffprobe

// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Info: the duration, dimensions, codec, frame rate and size summary
//     reported by `clipforge inspect` and the API
//
// Inspect executes ffprobe and returns the parsed Result; Result.Summary
// condenses it into an Info.
package ffprobe

// Package filters is the closed registry of visual filters a job may request.
//
// Each Kind maps to an ffmpeg -vf graph. The registry is immutable and
// lookups are pure; identifiers outside the registry return ErrUnknownFilter
// so callers never fall back to unfiltered output silently.
package filters

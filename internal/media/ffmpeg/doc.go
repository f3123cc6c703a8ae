// Package ffmpeg adapts the ffmpeg binary into the media engine used by the
// stage pipeline.
//
// Each transformation (filter, audio mix, subtitle burn) reads an existing
// file and writes a new `<prefix>_<YYYYMMDD_HHMMSS>_<id>.mp4` under the
// engine's output directory. Output is written to a `.tmp` sibling and
// renamed on success. Failures are tagged with services.ErrExternalTool and
// carry the tail of ffmpeg's stderr.
package ffmpeg

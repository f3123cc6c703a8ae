// Package captions turns free-form subtitle text into a timed caption track
// that the media engine can burn into a video.
package captions

// Package main hosts the clipforge CLI entrypoint and command graph.
//
// The Cobra command tree covers job authoring (create, update, delete),
// processing, history, exports, daemon control, media inspection and
// configuration scaffolding. When the daemon holds its lock, job commands are
// sent to its HTTP API; otherwise they operate on the local store and process
// jobs inline.
package main

// Package logs reads the daemon log file for `clipforge logs`.
//
// Tail returns the last N complete lines or everything after a saved offset,
// Follow polls for new lines, and JobFilter narrows either to a single job in
// the console or JSON log format.
package logs

// Package api defines the transport-neutral DTOs shared by the HTTP API and
// the CLI.
//
// Converters translate job records, history events, and workflow summaries
// into stable camelCase payloads, and JobService wraps the job store with the
// read operations both surfaces need: listing with status filters, single-job
// lookups, per-status stats, event history, and export details.
package api

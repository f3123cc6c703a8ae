// Package daemon runs the long-lived clipforge process.
//
// It wires configuration, the job store, the event history, and the workflow
// manager into a single lifecycle guarded by a flock-based lock file so only
// one instance serves a state directory. The daemon exposes the job HTTP API
// (gorilla/mux) with bearer authentication that accepts either the static API
// token or an HS256 token signed with the configured secret.
//
// Keep orchestration here; job semantics live in jobs, jobaccess, and
// workflow.
package daemon

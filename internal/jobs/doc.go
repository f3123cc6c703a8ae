// Package jobs persists processing jobs in SQLite and owns their lifecycle.
//
// The Store manages the database connection, schema initialization, field
// validation, and every status change. Transitions follow the state machine
// in state.go and are persisted as single guarded UPDATE statements, so the
// stored status is the only token deciding which caller may run a job.
//
// A schema change bumps the version in schema.go; users delete the database
// to adopt the new schema.
package jobs

// Package jobaccess wraps the job store and event history with the record
// operations exposed to users: create, update, delete, reset, and the read
// helpers from api.JobService. The daemon's HTTP handlers and the CLI both go
// through Access so history stays consistent regardless of entry point.
package jobaccess

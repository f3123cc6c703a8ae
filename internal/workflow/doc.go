// Package workflow executes processing jobs outside the caller's request path.
//
// Submit performs the guarded draft|failed -> processing transition in the
// job store and hands the job to a bounded worker pool. Each worker runs the
// stage pipeline in a per-job output directory while a heartbeat loop keeps
// the job's last_heartbeat fresh, then commits completed or failed in a
// single guarded write. A sweeper fails jobs whose heartbeat expires, and
// Start fails jobs a previous daemon left processing when reconcile is
// enabled.
//
// Successful outputs are optionally published to object storage; publish
// failures are logged and recorded in the job history without changing the
// outcome.
package workflow

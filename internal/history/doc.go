// Package history keeps an append-only log of job events in a pebble
// key-value store under the state directory.
//
// Keys are `job/<id>/<unix-nano>` with both numbers zero padded, so a range
// scan over one job's prefix yields its events in recording order.
package history

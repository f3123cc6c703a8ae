// Package services defines shared utilities consumed by the pipeline stages,
// the job executor and the API layer.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, attempt correlation IDs
//     and request IDs for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation, not found, external tool) with errors.Is.
package services

// Package preflight provides readiness checks for the filesystem paths,
// media binaries, and publish target clipforge depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs any failures as warnings.
//   - The CLI "clipforge check" command renders every result.
package preflight

// Package config loads, normalizes, and validates clipforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, applies an optional clipforge.env file and
// honours environment fallbacks such as CLIPFORGE_API_TOKEN and the AWS/GCP
// credential variables. The Config type centralizes every knob the daemon and
// CLI need so output/state directories, engine binaries and publish targets
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

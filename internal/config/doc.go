// Package config loads, normalizes, and validates pixelmint configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PIXELMINT_GATEWAY_TOKEN. The Config type centralizes every knob the CLI and
// the publication pipeline need, so storage and ledger backends, propagation
// timing, and metadata defaults are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package services defines shared utilities consumed by the publication
// pipeline and its network integrations.
//
// Key responsibilities:
//   - Context helpers that stamp attempt IDs, phase names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so storage, gateway, and
//     ledger clients report failures the pipeline can classify uniformly.
//
// Use these helpers when wiring a new backend so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services

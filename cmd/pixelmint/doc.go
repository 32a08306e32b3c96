// Package main hosts the pixelmint CLI entrypoint and command graph.
//
// The Cobra command tree edits the saved canvas, runs publication attempts,
// lists publication history, manages the signing identity, and serves the
// local ledger over HTTP. It centralizes configuration resolution, logging
// setup, and backend selection so subcommands can focus on output.
//
// Keep this package lean: new behaviour belongs in the internal packages
// first and is surfaced here through commands or flags.
package main

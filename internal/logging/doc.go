// Package logging assembles structured slog loggers and formatting helpers used
// across pixelmint.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with attempt IDs, phases, and correlation IDs. A bounded in-memory
// Journal captures the diagnostic trail of a single publication attempt
// without persisting it. The package also provides a no-op logger for tests
// and wiring code that cannot fail.
package logging

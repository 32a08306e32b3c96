// Package store persists pixelmint state in a single SQLite database.
//
// It owns the saved canvas, the history of confirmed publications recorded by
// the CLI after a successful attempt, and the registrations accepted by the
// local ledger. The publication pipeline itself never writes here; an attempt
// lives only in memory until it ends.
//
// The schema is embedded and versioned. A version mismatch is reported as
// ErrSchemaMismatch rather than migrated in place.
package store

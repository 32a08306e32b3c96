// Package preflight provides readiness checks for the paths and backends a
// publication depends on.
//
// These checks run in two contexts:
//   - "pixelmint publish" runs RunAll before starting an attempt and refuses
//     to start when a check fails, so no image is uploaded for an attempt
//     that cannot be registered.
//   - "pixelmint doctor" prints every result as a table.
package preflight

// Package ledger defines registrations, their canonical signed encoding, and
// the verification rules every ledger backend applies.
//
// A registration binds a name and owner to a description record locator. It
// is encoded with CBOR core deterministic encoding so the same registration
// always produces the same signing bytes. Backends live in subpackages:
// registry keeps an authoritative local ledger in SQLite, and rpc submits to a
// remote ledger over HTTP.
package ledger

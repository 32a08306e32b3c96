// Package identity provides the signing capability used to authorize ledger
// registrations.
//
// An identity is an ed25519 key pair stored as a hex-encoded seed on disk.
// Its public address is the base58 encoding of a key-type byte, the public
// key, and a four byte SHA3-256 checksum. Every signature request carries an
// Intent describing what is being signed; an Approver decides whether the
// user accepts it.
package identity

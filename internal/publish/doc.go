// Package publish runs a publication attempt: it renders a raster, uploads
// the image and its description record to durable storage, and registers the
// record on a ledger under the user's identity.
//
// An attempt moves strictly forward through the phases in phase.go. Every
// phase entry is reported to observers with a user-facing message, and every
// attempt ends in exactly one outcome: a Confirmation or an *Error whose Kind
// is one of authorization, encoding, publish, or commit.
//
// The caller's context can stop an attempt only until the image upload
// begins. After that, uploads, waits, and the ledger commit run to completion
// so nothing is left half registered.
package publish

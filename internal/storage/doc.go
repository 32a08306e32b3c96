// Package storage groups the durable content backends that hold published
// images and description records.
//
// Two implementations exist: contentstore keeps content-addressed blobs on
// local disk, and gateway uploads them to an HTTP bundler. Both publish a
// single payload per call and return an opaque, stable locator. Neither
// retries internally; the publication pipeline owns retry policy.
package storage

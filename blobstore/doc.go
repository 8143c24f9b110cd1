// Package blobstore abstracts where snapshot artifacts live.
//
// Snapshots are small, immutable, written and read whole, so the
// interface is Put/Get over complete byte slices rather than streaming
// or ranged reads. Memory and Local stores cover tests and single-host
// deployments; the s3 and minio subpackages cover object storage.
package blobstore

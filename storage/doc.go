// Package storage provides report file storage with pluggable backends.
//
// The package offers a uniform provider over several storage media:
//
//   - Local filesystem storage for development and single-host deployments
//   - Amazon S3 or compatible object storage
//   - MinIO (any S3-compatible service addressed by endpoint and bucket)
//   - IPFS Mutable File System storage
//   - HashiCorp Vault KV v2 storage
//
// # Location Descriptors
//
// Providers are selected from a location descriptor string by literal
// scheme prefix matching, most specific scheme first:
//
//	s3://bucket-name
//	minio://host:port/bucket-name
//	ipfs://host:port
//	vault://host:port/mount
//	file:///var/lib/reports
//
// Any descriptor matching no known scheme is treated as a local
// filesystem root path.
//
// # Layout
//
// Every provider derives two fixed logical roots from the configured
// prefix: {prefix}/active for current report files and {prefix}/archived
// for retired ones. Keys are slash-separated and relative to the
// provider's root on every backend, so the request layer's key policy is
// backend-independent.
//
// # Pagination
//
// Each variant translates its native paging primitive into an opaque
// continuation token: S3 passes its ListObjectsV2 token through, MinIO
// uses a start-after key cursor, and the IPFS, Vault and filesystem
// variants use a numeric offset into a recomputed full listing. The
// filesystem variant rescans and re-sorts the directory on every page
// request with no snapshot, which is acceptable only for small
// directories. On every backend the token chain enumerates the matching
// files exactly once and terminates when HasMore is false.
package storage

// Package main (cmd/httpserver) implements the report store API server.
//
// The server exposes scan report JSON files over HTTP, backed by one of the
// interchangeable storage providers: AWS S3, MinIO, IPFS MFS, Vault KV or the
// local filesystem. The backend is selected at startup from a single location
// descriptor and the choice is invisible to API clients.
//
// Configuration is handled through command-line flags and environment
// variables, with a .env file loaded for local development. The only required
// setting is the storage location:
//
//	report-store-server --storage-location=s3://scan-reports \
//	    --listen-addr=0.0.0.0:8080
//
//	report-store-server --storage-location=minio://localhost:9000/reports
//
//	report-store-server --storage-location=/var/lib/reports
//
// The server implements graceful shutdown on termination signals
// (SIGINT/SIGTERM) and supports health checks, metrics collection, and
// optional profiling endpoints.
package main

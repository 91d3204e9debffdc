// Package common holds shared service identity and logging setup.
package common

// PackageName identifies the service in logs and metrics.
const PackageName = "report-store-backend"

// Version is set at build time via -ldflags.
var Version = "dev"

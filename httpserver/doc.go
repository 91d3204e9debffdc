// Package httpserver exposes the report file API over HTTP.
//
// The server is thin plumbing around the storage provider selected at
// startup: handlers translate query and body parameters into provider
// calls through the shared path policy and map the provider error kinds
// onto status codes (absent keys are 404, everything else 500; upload
// validation failures are 400).
//
// Endpoints:
//
//	GET  /api/files?path=&limit=&continuationToken=  one listing page
//	GET  /api/files/{key}                            raw report document
//	POST /api/files/upload                           {filename, content}
//	POST /api/files/archive                          {key}
//
// plus /livez, /readyz, /drain and /undrain for orchestration, and an
// optional pprof mount under /debug.
package httpserver

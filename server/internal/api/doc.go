// Package api implements the read-only HTTP API of the usage collector.
//
// New(store) returns an http.Handler that serves:
//
//	GET /api/v1/health                : state and live session counts
//	GET /api/v1/reports               : latest report of every live session
//	GET /api/v1/reports/{session_id}  : one session; 404 if unknown or stale
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. No external HTTP framework is used.
package api

// Package receiver implements the HTTP endpoint that accepts usage reports
// from reporting agents.
//
// Receiver.ServeHTTP accepts POST with a JSON types.Report body, optionally
// gzip-encoded, and answers 400 if the body is malformed or session_id is
// missing. Accepted reports are stored with store.Put; an out-of-order report
// for a session is acknowledged but not stored. Authentication is enforced
// upstream by the auth middleware, so the receiver only validates structure.
package receiver

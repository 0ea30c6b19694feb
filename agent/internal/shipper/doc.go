// Package shipper delivers usage reports to the remote collector as a JSON
// HTTP POST.
//
// Shipper.Send makes exactly one attempt per call and never retries: a failed
// report is recorded by the caller and the next scheduled cycle sends a fresh
// one. Every failure mode (dial error, timeout, non-2xx reply) comes back as an
// error value; a non-2xx reply is a *StatusError carrying the code.
//
// Auth: mTLS client certificates, an API key header, bearer token or basic
// auth, all applied by a shared authRoundTripper. Bodies are gzip-compressed
// with klauspost/compress when compress is enabled.
package shipper

// Package store keeps the latest usage report per reporting session in memory,
// with TTL eviction for sessions that stopped reporting.
package store

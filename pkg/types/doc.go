// Package types defines shared Go types used by both the agent and the collector.
// These are the canonical in-memory representations of a usage report and the
// local artifact written alongside it; their JSON tags are the wire format.
package types

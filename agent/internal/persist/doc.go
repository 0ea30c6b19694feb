// Package persist writes the usage artifact into the host session directory.
//
// Writer.Write replaces <dir>/usage_stats.json with the latest WriteRecord on
// every call; the file is never appended to. The write goes through a temp
// file, fsync and rename so readers see either the previous or the new record.
//
// With the textfile option, the counters are also rendered in Prometheus text
// exposition format to <dir>/usage_stats.prom for a node_exporter textfile
// collector. That secondary write is best effort and only logged on failure.
package persist

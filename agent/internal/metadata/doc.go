// Package metadata collects the static description of the host process that
// every usage report carries: session id, versions, platform, cluster name and
// operator tags.
//
// Collection happens once at startup. Collector.Collect calls a Source up to a
// bounded number of times, sleeping with truncated exponential backoff between
// attempts, and returns ErrExhausted when every attempt failed. That error is
// fatal to reporter construction; it never reaches a running cycle.
//
// HostSource is the production Source. When host_metrics_url is configured it
// scrapes the host's Prometheus exposition and lifts the labels of the first
// *_build_info family into extra_usage_tags.
package metadata

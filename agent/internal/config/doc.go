// Package config loads and watches the usage reporter configuration file.
//
// Top-level types:
//   - Config{Agent}: config tree parsed from YAML
//   - AgentConfig: enabled, report_url, report_interval, session_dir,
//     metadata_retries, cluster_name, compress, timeout, extra_tags,
//     host_metrics_url, textfile, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none); Key(), Token() and
//     Password() resolve secrets from environment variables
//   - Toggle: an atomically readable enable flag shared with the scheduler
//
// Load(path) reads the YAML file, applies defaults (1h interval, 20 metadata
// retries, 10s timeout), then USAGE_STATS_ENABLED / USAGE_STATS_REPORT_URL
// overrides, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. WatchToggle builds on it to flip a
// Toggle so a running reporter can be switched off without a restart.
package config

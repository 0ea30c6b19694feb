// Package config loads the collector configuration from the `server:` section
// of config.yaml.
//
// Load(path) applies defaults (port 8080, 24h report TTL) and validates the
// port range, auth mode (apikey|none) and TTL. AuthConfig.Key() resolves the
// expected API key from the environment variable named by key_env.
package config

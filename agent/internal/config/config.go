package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultReportURL       = "https://usage-stats.obsidianstack.dev/"
	DefaultReportInterval  = time.Hour
	DefaultMetadataRetries = 20
	DefaultTimeout         = 10 * time.Second
)

// Environment variables that override the file. They exist so an operator can
// opt out of reporting without editing the host's config.
const (
	EnvEnabled   = "USAGE_STATS_ENABLED"
	EnvReportURL = "USAGE_STATS_REPORT_URL"
)

// Config is the top-level agent configuration. The `server:` key in the same
// file is ignored here and parsed by the collector.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all usage-reporter settings.
type AgentConfig struct {
	// Enabled is the reporting feature toggle. A nil value means "not set"
	// and is resolved to true by Load.
	Enabled *bool `yaml:"enabled"`

	// ReportURL is the collector endpoint reports are POSTed to.
	ReportURL string `yaml:"report_url"`

	// ReportInterval is the steady-state delay between cycles, and the upper
	// bound of the startup jitter. Must be a whole number of seconds.
	ReportInterval time.Duration `yaml:"report_interval"`

	// SessionDir is the host session's working directory. The usage artifact
	// is written inside it.
	SessionDir string `yaml:"session_dir"`

	// MetadataRetries bounds the attempts made to collect metadata at startup.
	MetadataRetries int `yaml:"metadata_retries"`

	// ClusterName is an operator-chosen identifier copied into every report.
	ClusterName string `yaml:"cluster_name"`

	// Compress gzips request bodies.
	Compress bool `yaml:"compress"`

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout"`

	// ExtraTags are copied verbatim into extra_usage_tags.
	ExtraTags map[string]string `yaml:"extra_tags"`

	// HostMetricsURL optionally points at the host's Prometheus /metrics
	// endpoint; *_build_info labels found there are added to the report.
	HostMetricsURL string `yaml:"host_metrics_url"`

	// Textfile additionally writes the counters in Prometheus text format
	// next to the JSON artifact.
	Textfile bool `yaml:"textfile"`

	// Auth configures how the agent authenticates to the collector.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// IsEnabled reports the resolved value of the feature toggle.
func (a AgentConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// AuthConfig specifies the authentication mode used towards the collector.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header name the API key is sent in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// EffectiveHeader returns the configured API key header, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Toggle is a feature flag that can be flipped while the reporter runs.
// The zero value is disabled.
type Toggle struct {
	v atomic.Bool
}

// NewToggle returns a Toggle holding enabled.
func NewToggle(enabled bool) *Toggle {
	t := &Toggle{}
	t.v.Store(enabled)
	return t
}

// Enabled implements reporter.Toggle.
func (t *Toggle) Enabled() bool { return t.v.Load() }

// Set changes the toggle value.
func (t *Toggle) Set(enabled bool) { t.v.Store(enabled) }

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults, then environment
// overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			ReportURL:       DefaultReportURL,
			ReportInterval:  DefaultReportInterval,
			MetadataRetries: DefaultMetadataRetries,
			Timeout:         DefaultTimeout,
		},
	}
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvEnabled, v, err)
		}
		cfg.Agent.Enabled = &enabled
	}
	if v := os.Getenv(EnvReportURL); v != "" {
		cfg.Agent.ReportURL = v
	}
	return nil
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ReportURL == "" {
		return fmt.Errorf("agent.report_url is required")
	}
	if u, err := url.Parse(a.ReportURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("agent.report_url %q is not an absolute URL", a.ReportURL)
	}
	if a.ReportInterval < time.Second {
		return fmt.Errorf("agent.report_interval must be at least 1s")
	}
	if a.ReportInterval%time.Second != 0 {
		return fmt.Errorf("agent.report_interval %v must be a whole number of seconds", a.ReportInterval)
	}
	if a.SessionDir == "" {
		return fmt.Errorf("agent.session_dir is required")
	}
	if a.MetadataRetries <= 0 {
		return fmt.Errorf("agent.metadata_retries must be positive")
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("agent.timeout must be positive")
	}
	switch a.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("agent.auth.mode %q unknown", a.Auth.Mode)
	}
	if a.Auth.Mode == "mtls" && (a.Auth.CertFile == "" || a.Auth.KeyFile == "") {
		return fmt.Errorf("agent.auth: mtls requires cert_file and key_file")
	}
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the dashboard configuration.
const (
	DefaultHTTPPort      = 8090
	DefaultLogLevel      = "info"
	DefaultEndpoint      = "http://localhost:8080/v1/diagnostics"
	DefaultSourceTimeout = 10 * time.Second
)

// Config holds the configuration parsed from the `dashboard:` section of
// config.yaml.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// DashboardConfig holds all dashboard server settings.
type DashboardConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream and metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error. It is the only setting
	// applied live when the config file changes.
	LogLevel string `yaml:"log_level"`

	// UIDir optionally serves a pre-built UI from this directory.
	UIDir string `yaml:"ui_dir"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	// Defaults to ["*"].
	CORSOrigins []string `yaml:"cors_origins"`

	// Source describes the remote diagnostics API.
	Source SourceConfig `yaml:"source"`
}

// SourceConfig describes where the diagnostics runs are fetched from.
type SourceConfig struct {
	// Endpoint is the full URL of the diagnostics list endpoint.
	Endpoint string `yaml:"endpoint"`

	// EndpointEnv is the name of an environment variable that, when set and
	// non-empty, overrides Endpoint.
	EndpointEnv string `yaml:"endpoint_env"`

	// Timeout bounds the whole request, including reading the body.
	Timeout time.Duration `yaml:"timeout"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS options for the diagnostics source.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification.
	// Only use this against internal test backends.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// CAFile is an optional PEM bundle used instead of the system roots.
	CAFile string `yaml:"ca_file"`
}

// EffectiveEndpoint returns the endpoint, honouring EndpointEnv.
func (s SourceConfig) EffectiveEndpoint() string {
	if s.EndpointEnv != "" {
		if v := os.Getenv(s.EndpointEnv); v != "" {
			return v
		}
	}
	return s.Endpoint
}

// Level returns the slog level for LogLevel. Unknown values map to info;
// validate rejects them before they get here.
func (d DashboardConfig) Level() slog.Level {
	switch strings.ToLower(d.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dashboard config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("dashboard config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("dashboard config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is also the
// configuration used when no config file exists.
func Defaults() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			HTTPPort:    DefaultHTTPPort,
			LogLevel:    DefaultLogLevel,
			CORSOrigins: []string{"*"},
			Source: SourceConfig{
				Endpoint: DefaultEndpoint,
				Timeout:  DefaultSourceTimeout,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	d := cfg.Dashboard
	if d.HTTPPort <= 0 || d.HTTPPort > 65535 {
		return fmt.Errorf("dashboard.http_port %d is out of range [1, 65535]", d.HTTPPort)
	}
	switch strings.ToLower(d.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("dashboard.log_level %q unknown: want debug|info|warn|error", d.LogLevel)
	}

	endpoint := d.Source.EffectiveEndpoint()
	if endpoint == "" {
		return fmt.Errorf("dashboard.source.endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("dashboard.source.endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("dashboard.source.endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("dashboard.source.endpoint %q: missing host", endpoint)
	}
	if d.Source.Timeout <= 0 {
		return fmt.Errorf("dashboard.source.timeout must be positive")
	}
	return nil
}

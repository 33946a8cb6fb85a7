package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort       = 8000
	DefaultFetchTimeout   = 20 * time.Second
	DefaultWebhookTimeout = 10 * time.Second
	DefaultEventName      = "HAProxy Monitor"
	DefaultSender         = "HAProxy Monitor"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"

	// MaxFetchTimeout bounds the stats request so a detached tick cannot hang.
	MaxFetchTimeout = 30 * time.Second
)

// Config is the service configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port serving /tick, /integration.json, /health and /metrics.
	HTTPPort int `yaml:"http_port"`

	// BaseURL is advertised as app_url in the integration descriptor.
	// When empty it is derived from the incoming request.
	BaseURL string `yaml:"base_url"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// FetchConfig controls the outbound request to the HAProxy stats endpoint.
type FetchConfig struct {
	// Timeout bounds the whole GET, body included. At most MaxFetchTimeout.
	Timeout time.Duration `yaml:"timeout"`

	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for HAProxy instances serving self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// WebhookConfig controls delivery of the rendered report.
type WebhookConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	// EventName and Username are sent verbatim in every payload.
	EventName string `yaml:"event_name"`
	Username  string `yaml:"username"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path does
// not exist. Used when no -config flag was given.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Fetch: FetchConfig{
			Timeout: DefaultFetchTimeout,
		},
		Webhook: WebhookConfig{
			Timeout:   DefaultWebhookTimeout,
			EventName: DefaultEventName,
			Username:  DefaultSender,
		},
	}
}

// HTTPURL rejects strings that are not absolute http or https URLs. Empty
// values pass so the rule can be combined with validation.Required.
var HTTPURL = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
})

// Validate checks required fields and structural constraints.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.HTTPPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Server.BaseURL, is.URL, HTTPURL),
		validation.Field(&c.Server.CORSOrigins, validation.Each(validation.Required)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.Required, validation.In("json", "text")),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := validation.ValidateStruct(&c.Fetch,
		validation.Field(&c.Fetch.Timeout, validation.Required, validation.Min(time.Second), validation.Max(MaxFetchTimeout)),
	); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := validation.ValidateStruct(&c.Webhook,
		validation.Field(&c.Webhook.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Webhook.EventName, validation.Required),
		validation.Field(&c.Webhook.Username, validation.Required),
	); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

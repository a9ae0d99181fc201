package config

import (
	"time"

	"github.com/vietddude/intake/internal/core/domain"
	redisstore "github.com/vietddude/intake/internal/infra/storage/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Environment domain.Environment `yaml:"environment"`
	API         APIConfig          `yaml:"api"`
	Retry       RetryConfig        `yaml:"retry"`
	Credentials CredentialsConfig  `yaml:"credentials"`
	Connection  ConnectionConfig   `yaml:"connection"`
	Redis       redisstore.Config  `yaml:"redis"`
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Billing     BillingConfig      `yaml:"billing"`
}

// APIConfig describes the remote backend.
type APIConfig struct {
	ProductionURL string        `yaml:"production_url"`
	LocalURL      string        `yaml:"local_url"`
	HealthPath    string        `yaml:"health_path"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	LoginPath     string        `yaml:"login_path"`
	OTPPaths      []string      `yaml:"otp_paths"` // 401s on these never redirect
}

// RetryConfig mirrors fetch.RetryConfig in YAML form.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	UploadTimeout     time.Duration `yaml:"upload_timeout"`
	APITimeout        time.Duration `yaml:"api_timeout"`

	maxRetriesSet bool
}

// UnmarshalYAML records whether max_retries was given, so an explicit 0
// survives defaulting.
func (r *RetryConfig) UnmarshalYAML(unmarshal func(any) error) error {
	type plain RetryConfig
	if err := unmarshal((*plain)(r)); err != nil {
		return err
	}
	var keys struct {
		MaxRetries *int `yaml:"max_retries"`
	}
	if err := unmarshal(&keys); err != nil {
		return err
	}
	r.maxRetriesSet = keys.MaxRetries != nil
	return nil
}

// CredentialsConfig holds the credential store settings.
type CredentialsConfig struct {
	ObfuscationKey string `yaml:"obfuscation_key"`
}

// ConnectionConfig controls the background liveness probe.
type ConnectionConfig struct {
	ProbeInterval      time.Duration `yaml:"probe_interval"`      // negative = no background probing
	RevalidateInterval time.Duration `yaml:"revalidate_interval"` // 0 = only on reconnect
}

// ServerConfig holds the health/metrics server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BillingConfig holds subscription pricing inputs.
type BillingConfig struct {
	BasePrice float64 `yaml:"base_price"`
	Currency  string  `yaml:"currency"`
	CycleDays int     `yaml:"cycle_days"`
}

// BaseURL returns the API base URL for the configured environment.
func (c *AppConfig) BaseURL() string {
	if c.Environment.IsProduction() && c.API.ProductionURL != "" {
		return c.API.ProductionURL
	}
	return c.API.LocalURL
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/intake/internal/core/domain"
)

// Environment variables that override file values.
const (
	EnvAPIURL      = "INTAKE_API_URL"
	EnvEnvironment = "INTAKE_ENV"
)

// DefaultObfuscationKey is used when the config leaves the key empty.
const DefaultObfuscationKey = "intake-org-obfuscation-v1"

// Load reads configuration from a YAML file. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.ProductionURL = v
	}
	if v := os.Getenv(EnvEnvironment); v != "" {
		cfg.Environment = domain.Environment(strings.ToLower(v))
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Environment == "" {
		cfg.Environment = domain.EnvDevelopment
	}

	if cfg.API.LocalURL == "" {
		cfg.API.LocalURL = "http://localhost:5000"
	}
	if cfg.API.HealthPath == "" {
		cfg.API.HealthPath = "/api/check-health/"
	}
	if cfg.API.HealthTimeout == 0 {
		cfg.API.HealthTimeout = 5 * time.Second
	}
	if cfg.API.LoginPath == "" {
		cfg.API.LoginPath = "/login"
	}
	if cfg.API.OTPPaths == nil {
		cfg.API.OTPPaths = []string{"/verify-otp", "/verify-backup-code"}
	}

	if cfg.Connection.ProbeInterval == 0 {
		cfg.Connection.ProbeInterval = 30 * time.Second
	}

	r := &cfg.Retry
	if !r.maxRetriesSet && r.MaxRetries == 0 {
		r.MaxRetries = 3
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 8 * time.Second
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2
	}
	if r.UploadTimeout == 0 {
		r.UploadTimeout = 5 * time.Minute
	}
	if r.APITimeout == 0 {
		r.APITimeout = 30 * time.Second
	}

	if cfg.Credentials.ObfuscationKey == "" {
		cfg.Credentials.ObfuscationKey = DefaultObfuscationKey
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Billing.BasePrice == 0 {
		cfg.Billing.BasePrice = 40
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "AUD"
	}
	if cfg.Billing.CycleDays == 0 {
		cfg.Billing.CycleDays = 30
	}
}

// Validate rejects configurations the client cannot run with.
func (c *AppConfig) Validate() error {
	switch c.Environment {
	case domain.EnvProduction, domain.EnvDevelopment:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Environment.IsProduction() && c.API.ProductionURL == "" {
		return fmt.Errorf("production environment requires api.production_url or %s", EnvAPIURL)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be >= 1, got %v", c.Retry.BackoffMultiplier)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) is below retry.base_delay (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}

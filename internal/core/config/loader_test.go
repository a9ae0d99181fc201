package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/intake/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6380/1")

	path := writeConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.URL != "redis://localhost:6380/1" {
		t.Errorf("Expected redis URL redis://localhost:6380/1, got %s", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != domain.EnvDevelopment {
		t.Errorf("Expected development environment, got %s", cfg.Environment)
	}
	if cfg.BaseURL() != "http://localhost:5000" {
		t.Errorf("Expected local base URL, got %s", cfg.BaseURL())
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second ||
		cfg.Retry.MaxDelay != 8*time.Second || cfg.Retry.BackoffMultiplier != 2 {
		t.Errorf("Unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Retry.UploadTimeout != 5*time.Minute || cfg.Retry.APITimeout != 30*time.Second {
		t.Errorf("Unexpected timeout defaults: %+v", cfg.Retry)
	}
	if len(cfg.API.OTPPaths) != 2 {
		t.Errorf("Expected 2 OTP paths, got %v", cfg.API.OTPPaths)
	}
	if cfg.Connection.ProbeInterval != 30*time.Second || cfg.Connection.RevalidateInterval != 0 {
		t.Errorf("Unexpected connection defaults: %+v", cfg.Connection)
	}
}

func TestLoad_ProductionOverride(t *testing.T) {
	t.Setenv(EnvEnvironment, "PRODUCTION")
	t.Setenv(EnvAPIURL, "https://api.example.com")

	path := writeConfig(t, `
api:
  production_url: https://ignored.example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL() != "https://api.example.com" {
		t.Errorf("Expected env override URL, got %s", cfg.BaseURL())
	}
}

func TestLoad_ProductionRequiresURL(t *testing.T) {
	t.Setenv(EnvEnvironment, "production")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for production without URL")
	}
}

func TestLoad_InvalidRetry(t *testing.T) {
	path := writeConfig(t, `
retry:
  base_delay: 10s
  max_delay: 1s
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for max_delay below base_delay")
	}
}

func TestLoad_ExplicitZeroRetries(t *testing.T) {
	path := writeConfig(t, `
retry:
  max_retries: 0
  base_delay: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.MaxRetries != 0 {
		t.Errorf("Expected explicit max_retries 0 to be kept, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay != 2*time.Second || cfg.Retry.MaxDelay != 8*time.Second {
		t.Errorf("Unexpected delays: %+v", cfg.Retry)
	}
}

func TestLoad_RetrySectionWithoutMaxRetries(t *testing.T) {
	path := writeConfig(t, `
retry:
  base_delay: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Expected default max_retries 3, got %d", cfg.Retry.MaxRetries)
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	path := writeConfig(t, `
logging:
  format: xml
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unknown logging format")
	}
}

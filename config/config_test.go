package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

func TestValidatePort(t *testing.T) {
	testCases := []struct {
		name      string
		port      string
		fieldName string
		expectErr bool
		errString string
	}{
		{
			name:      "valid port",
			port:      ":8080",
			fieldName: "ServerPort",
			expectErr: false,
		},
		{
			name:      "empty port",
			port:      "",
			fieldName: "ServerPort",
			expectErr: true,
			errString: "ServerPort: port cannot be empty",
		},
		{
			name:      "no colon",
			port:      "8080",
			fieldName: "ServerPort",
			expectErr: true,
			errString: "ServerPort: port must be in format ':PORT' where PORT is numeric (current value: 8080)",
		},
		{
			name:      "non-numeric",
			port:      ":abcd",
			fieldName: "ServerPort",
			expectErr: true,
			errString: "ServerPort: port must be in format ':PORT' where PORT is numeric (current value: :abcd)",
		},
		{
			name:      "port out of range (low)",
			port:      ":0",
			fieldName: "ServerPort",
			expectErr: true,
			errString: "ServerPort: port must be between 1 and 65535 (current value: 0)",
		},
		{
			name:      "port out of range (high)",
			port:      ":65536",
			fieldName: "ServerPort",
			expectErr: true,
			errString: "ServerPort: port must be between 1 and 65535 (current value: 65536)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePort(tc.port, tc.fieldName)
			if tc.expectErr {
				if err == nil {
					t.Errorf("expected an error, but got nil")
				} else if err.Error() != tc.errString {
					t.Errorf("expected error string '%s', but got '%s'", tc.errString, err.Error())
				}
			} else if err != nil {
				t.Errorf("expected no error, but got: %v", err)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Remote.Enabled {
		t.Errorf("remote should be disabled by default")
	}
	d, err := cfg.RemoteTimeout()
	if err != nil || d != 10*time.Second {
		t.Errorf("expected 10s default remote timeout, got %v (err %v)", d, err)
	}
	level, err := cfg.DefaultPrivacyLevel()
	if err != nil || level != detectors.Standard {
		t.Errorf("expected standard default level, got %v (err %v)", level, err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Config)
		errPrefix string
	}{
		{
			name:      "bad server port",
			mutate:    func(c *Config) { c.ServerPort = "8080" },
			errPrefix: "ServerPort:",
		},
		{
			name: "remote enabled without url",
			mutate: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.BaseURL = ""
			},
			errPrefix: "Remote.BaseURL:",
		},
		{
			name: "remote url without scheme",
			mutate: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.BaseURL = "localhost:8001"
			},
			errPrefix: "Remote.BaseURL:",
		},
		{
			name: "remote timeout not a duration",
			mutate: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.Timeout = "ten"
			},
			errPrefix: "Remote.Timeout:",
		},
		{
			name: "remote timeout zero",
			mutate: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.Timeout = "0s"
			},
			errPrefix: "Remote.Timeout:",
		},
		{
			name: "negative rate limit",
			mutate: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.RateLimit = -1
			},
			errPrefix: "Remote.RateLimit:",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.RateLimit = 5
				c.Remote.Burst = 0
			},
			errPrefix: "Remote.Burst:",
		},
		{
			name:      "unknown privacy level",
			mutate:    func(c *Config) { c.Sanitizer.PrivacyLevel = "paranoid" },
			errPrefix: "Sanitizer.PrivacyLevel:",
		},
		{
			name:      "unknown mapping mode",
			mutate:    func(c *Config) { c.Sanitizer.MappingMode = "sometimes" },
			errPrefix: "Sanitizer.MappingMode:",
		},
		{
			name:      "zero batch size",
			mutate:    func(c *Config) { c.Sanitizer.MaxBatchSize = 0 },
			errPrefix: "Sanitizer.MaxBatchSize:",
		},
		{
			name: "database port out of range",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Port = 70000
			},
			errPrefix: "Database.Port:",
		},
		{
			name:      "unknown log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			errPrefix: "Logging.Format:",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, but got nil")
			}
			if !strings.HasPrefix(err.Error(), tc.errPrefix) {
				t.Errorf("expected error starting with '%s', but got '%s'", tc.errPrefix, err.Error())
			}
		})
	}
}

func TestRemoteSettingsIgnoredWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.BaseURL = ""
	cfg.Remote.Timeout = "nonsense"
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled remote should not be validated: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server_port": ":9090",
		"remote": {"enabled": true, "base_url": "http://anonymizer:8001", "timeout": "3s"},
		"sanitizer": {"privacy_level": "enhanced", "mapping_mode": "consistent"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFromFile(path, cfg); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.ServerPort != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.ServerPort)
	}
	if !cfg.Remote.Enabled || cfg.Remote.BaseURL != "http://anonymizer:8001" || cfg.Remote.Timeout != "3s" {
		t.Errorf("remote config not loaded: %+v", cfg.Remote)
	}
	if cfg.Sanitizer.PrivacyLevel != "enhanced" || cfg.Sanitizer.MappingMode != "consistent" {
		t.Errorf("sanitizer config not loaded: %+v", cfg.Sanitizer)
	}
	// untouched fields keep their defaults
	if cfg.Sanitizer.MaxBatchSize != 100 {
		t.Errorf("expected default max batch size 100, got %d", cfg.Sanitizer.MaxBatchSize)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default database port 5432, got %d", cfg.Database.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	if err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"), cfg); err == nil {
		t.Errorf("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadFromFile(path, cfg); err == nil {
		t.Errorf("expected an error for invalid JSON")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":7070")
	t.Setenv("REMOTE_ENABLED", "true")
	t.Setenv("REMOTE_BASE_URL", "https://anon.internal")
	t.Setenv("REMOTE_TIMEOUT", "250ms")
	t.Setenv("REMOTE_RATE_LIMIT", "12.5")
	t.Setenv("REMOTE_BURST", "4")
	t.Setenv("CUSTOM_ENTITIES", "EMPLOYEE_ID, ,PROJECT_CODE")
	t.Setenv("PRIVACY_LEVEL", "maximum")
	t.Setenv("PRESERVE_CONTEXT", "false")
	t.Setenv("MAPPING_MODE", "consistent")
	t.Setenv("CATALOG_PATH", "/etc/pellucid/rules.yaml")
	t.Setenv("MAX_BATCH_SIZE", "25")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_CLEANUP_HOURS", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.ServerPort != ":7070" {
		t.Errorf("SERVER_PORT not applied: %s", cfg.ServerPort)
	}
	if !cfg.Remote.Enabled || cfg.Remote.BaseURL != "https://anon.internal" {
		t.Errorf("remote env not applied: %+v", cfg.Remote)
	}
	if d, err := cfg.RemoteTimeout(); err != nil || d != 250*time.Millisecond {
		t.Errorf("expected 250ms timeout, got %v (err %v)", d, err)
	}
	if cfg.Remote.RateLimit != 12.5 || cfg.Remote.Burst != 4 {
		t.Errorf("rate limit env not applied: %v/%d", cfg.Remote.RateLimit, cfg.Remote.Burst)
	}
	if len(cfg.Remote.CustomEntities) != 2 || cfg.Remote.CustomEntities[1] != "PROJECT_CODE" {
		t.Errorf("unexpected custom entities: %v", cfg.Remote.CustomEntities)
	}
	if cfg.Sanitizer.PrivacyLevel != "maximum" || cfg.Sanitizer.PreserveContext {
		t.Errorf("sanitizer env not applied: %+v", cfg.Sanitizer)
	}
	if cfg.Sanitizer.MappingMode != "consistent" || cfg.Sanitizer.CatalogPath != "/etc/pellucid/rules.yaml" {
		t.Errorf("sanitizer env not applied: %+v", cfg.Sanitizer)
	}
	if cfg.Sanitizer.MaxBatchSize != 25 {
		t.Errorf("MAX_BATCH_SIZE not applied: %d", cfg.Sanitizer.MaxBatchSize)
	}
	if !cfg.Database.Enabled || cfg.Database.Port != 6543 {
		t.Errorf("database env not applied: %+v", cfg.Database)
	}
	// unparsable numbers keep the previous value
	if cfg.Database.CleanupHours != 0 {
		t.Errorf("expected cleanup hours to stay 0, got %d", cfg.Database.CleanupHours)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging env not applied: %+v", cfg.Logging)
	}
	if cfg.SentryDSN == "" {
		t.Errorf("SENTRY_DSN not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("env config should be valid: %v", err)
	}
}

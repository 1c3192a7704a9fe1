package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

const TRUE = "true"

// RemoteConfig holds the remote anonymization service settings
type RemoteConfig struct {
	Enabled        bool     `json:"enabled"`
	BaseURL        string   `json:"base_url"`
	Timeout        string   `json:"timeout"`    // Go duration, e.g. "10s"
	RateLimit      float64  `json:"rate_limit"` // Requests per second, 0 means unlimited
	Burst          int      `json:"burst"`
	CustomEntities []string `json:"custom_entities"`
}

// SanitizerConfig holds the defaults applied when a request does not set them
type SanitizerConfig struct {
	PrivacyLevel    string `json:"privacy_level"`
	PreserveContext bool   `json:"preserve_context"`
	MappingMode     string `json:"mapping_mode"`
	CatalogPath     string `json:"catalog_path"` // Optional YAML rule overlay
	MaxBatchSize    int    `json:"max_batch_size"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled      bool   `json:"enabled"`  // Whether to use database storage
	Host         string `json:"host"`     // Database host
	Port         int    `json:"port"`     // Database port
	Database     string `json:"database"` // Database name
	Username     string `json:"username"` // Database username
	Password     string `json:"password"` // Database password
	SSLMode      string `json:"ssl_mode"` // SSL mode (disable, require, etc.)
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
	MaxLifetime  int    `json:"max_lifetime"`  // Connection max lifetime in seconds
	CleanupHours int    `json:"cleanup_hours"` // Hours after which stored submissions are deleted, 0 keeps them
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // console or json
}

// Config holds all configuration for the sanitization service
type Config struct {
	ServerPort string          `json:"server_port"`
	SentryDSN  string          `json:"sentry_dsn"`
	Remote     RemoteConfig    `json:"remote"`
	Sanitizer  SanitizerConfig `json:"sanitizer"`
	Database   DatabaseConfig  `json:"database"`
	Logging    LoggingConfig   `json:"logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerPort: ":8080",
		Remote: RemoteConfig{
			Enabled: false,
			BaseURL: "http://localhost:8001",
			Timeout: "10s",
			Burst:   1,
		},
		Sanitizer: SanitizerConfig{
			PrivacyLevel:    detectors.Standard.String(),
			PreserveContext: true,
			MappingMode:     string(pii.MappingPerOccurrence),
			MaxBatchSize:    100,
		},
		Database: DatabaseConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "pellucid",
			Username:     "postgres",
			Password:     "",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxLifetime:  300,
			CleanupHours: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile overlays the JSON file at path onto cfg. Fields missing from
// the file keep their current values.
func LoadFromFile(path string, cfg *Config) error {
	// #nosec G304 - Config file path is supplied by the operator
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

// LoadFromEnv overrides configuration with environment variables
func LoadFromEnv(cfg *Config) {
	loadApplicationConfig(cfg)
	loadRemoteConfig(cfg)
	loadSanitizerConfig(cfg)
	loadDatabaseConfig(cfg)
	loadLoggingConfig(cfg)
}

// loadApplicationConfig loads application configuration from environment variables
func loadApplicationConfig(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.ServerPort = port
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		cfg.SentryDSN = dsn
	}
}

// loadRemoteConfig loads remote anonymizer configuration from environment variables
func loadRemoteConfig(cfg *Config) {
	if enabled := os.Getenv("REMOTE_ENABLED"); enabled != "" {
		cfg.Remote.Enabled = enabled == TRUE
	}

	if baseURL := os.Getenv("REMOTE_BASE_URL"); baseURL != "" {
		cfg.Remote.BaseURL = baseURL
	}

	if timeout := os.Getenv("REMOTE_TIMEOUT"); timeout != "" {
		cfg.Remote.Timeout = timeout
	}

	if rateLimit := os.Getenv("REMOTE_RATE_LIMIT"); rateLimit != "" {
		if rps, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			cfg.Remote.RateLimit = rps
		}
	}

	if burst := os.Getenv("REMOTE_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			cfg.Remote.Burst = b
		}
	}

	if entities := os.Getenv("CUSTOM_ENTITIES"); entities != "" {
		cfg.Remote.CustomEntities = splitList(entities)
	}
}

// loadSanitizerConfig loads sanitizer defaults from environment variables
func loadSanitizerConfig(cfg *Config) {
	if level := os.Getenv("PRIVACY_LEVEL"); level != "" {
		cfg.Sanitizer.PrivacyLevel = level
	}

	if preserve := os.Getenv("PRESERVE_CONTEXT"); preserve != "" {
		cfg.Sanitizer.PreserveContext = preserve == TRUE
	}

	if mode := os.Getenv("MAPPING_MODE"); mode != "" {
		cfg.Sanitizer.MappingMode = mode
	}

	if path := os.Getenv("CATALOG_PATH"); path != "" {
		cfg.Sanitizer.CatalogPath = path
	}

	if maxBatch := os.Getenv("MAX_BATCH_SIZE"); maxBatch != "" {
		if n, err := strconv.Atoi(maxBatch); err == nil {
			cfg.Sanitizer.MaxBatchSize = n
		}
	}
}

// loadDatabaseConfig loads database configuration from environment variables
func loadDatabaseConfig(cfg *Config) {
	if dbEnabled := os.Getenv("DB_ENABLED"); dbEnabled != "" {
		cfg.Database.Enabled = dbEnabled == TRUE
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}

	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Database = dbName
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.Username = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}

	if sslMode := os.Getenv("DB_SSL_MODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	if cleanupHours := os.Getenv("DB_CLEANUP_HOURS"); cleanupHours != "" {
		if hours, err := strconv.Atoi(cleanupHours); err == nil {
			cfg.Database.CleanupHours = hours
		}
	}
}

// loadLoggingConfig loads logging configuration from environment variables
func loadLoggingConfig(cfg *Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RemoteTimeout parses Remote.Timeout
func (c *Config) RemoteTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil {
		return 0, fmt.Errorf("Remote.Timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("Remote.Timeout: must be positive (current value: %s)", c.Remote.Timeout)
	}
	return d, nil
}

// DefaultPrivacyLevel parses Sanitizer.PrivacyLevel
func (c *Config) DefaultPrivacyLevel() (detectors.PrivacyLevel, error) {
	level, err := detectors.ParsePrivacyLevel(c.Sanitizer.PrivacyLevel)
	if err != nil {
		return detectors.Standard, fmt.Errorf("Sanitizer.PrivacyLevel: %w", err)
	}
	return level, nil
}

// Validate checks the configuration and returns the first problem found
func (c *Config) Validate() error {
	if err := validatePort(c.ServerPort, "ServerPort"); err != nil {
		return err
	}

	if c.Remote.Enabled {
		if err := validateBaseURL(c.Remote.BaseURL, "Remote.BaseURL"); err != nil {
			return err
		}
		if _, err := c.RemoteTimeout(); err != nil {
			return err
		}
		if c.Remote.RateLimit < 0 {
			return fmt.Errorf("Remote.RateLimit: must not be negative (current value: %v)", c.Remote.RateLimit)
		}
		if c.Remote.RateLimit > 0 && c.Remote.Burst < 1 {
			return fmt.Errorf("Remote.Burst: must be at least 1 when a rate limit is set (current value: %d)", c.Remote.Burst)
		}
	}

	if _, err := c.DefaultPrivacyLevel(); err != nil {
		return err
	}
	if _, err := pii.ParseMappingMode(c.Sanitizer.MappingMode); err != nil {
		return fmt.Errorf("Sanitizer.MappingMode: %w", err)
	}
	if c.Sanitizer.MaxBatchSize < 1 {
		return fmt.Errorf("Sanitizer.MaxBatchSize: must be at least 1 (current value: %d)", c.Sanitizer.MaxBatchSize)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("Database.Host: host cannot be empty")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("Database.Port: port must be between 1 and 65535 (current value: %d)", c.Database.Port)
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("Logging.Format: must be 'console' or 'json' (current value: %s)", c.Logging.Format)
	}

	return nil
}

// validatePort checks a listen address of the form ":PORT"
func validatePort(port, fieldName string) error {
	if port == "" {
		return fmt.Errorf("%s: port cannot be empty", fieldName)
	}
	if !strings.HasPrefix(port, ":") {
		return fmt.Errorf("%s: port must be in format ':PORT' where PORT is numeric (current value: %s)", fieldName, port)
	}
	n, err := strconv.Atoi(port[1:])
	if err != nil {
		return fmt.Errorf("%s: port must be in format ':PORT' where PORT is numeric (current value: %s)", fieldName, port)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("%s: port must be between 1 and 65535 (current value: %d)", fieldName, n)
	}
	return nil
}

func validateBaseURL(raw, fieldName string) error {
	if raw == "" {
		return fmt.Errorf("%s: URL cannot be empty", fieldName)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL format: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https (current value: %s)", fieldName, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: URL has no host (current value: %s)", fieldName, raw)
	}
	return nil
}

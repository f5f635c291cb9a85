package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"saasreports/internal/tenant"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	SeedDemoData bool

	// AMQP, empty URL disables export events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	MirrorTenants       []string
	MirrorInterval      time.Duration

	// Caching
	DashboardCacheTTL    time.Duration
	ExportTTL            time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	// Reports
	ReportCurrency  string
	ExportRateLimit int // requests per minute per client

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sqlite"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                 "8081",
		DataBackend:          "memory",
		SQLiteDBPath:         "./data/reports.db",
		AMQPExchange:         "reports",
		AMQPQueue:            "export_ready",
		MirrorInterval:       time.Hour,
		DashboardCacheTTL:    5 * time.Minute,
		ExportTTL:            10 * time.Minute,
		CacheMaxEntries:      1000,
		CacheCleanupInterval: time.Minute,
		ReportCurrency:       "SAR",
		ExportRateLimit:      30,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load returns defaults overridden by environment variables. When
// CONFIG_FILE is set the TOML file is applied first.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile returns defaults overridden by the TOML file at path, then by
// environment variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.SeedDemoData = getEnvBool("SEED_DEMO_DATA", c.SeedDemoData)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	if v := getEnv("MIRROR_TENANTS", ""); v != "" {
		c.MirrorTenants = splitList(v)
	}
	c.MirrorInterval = getEnvDuration("MIRROR_INTERVAL", c.MirrorInterval)

	c.DashboardCacheTTL = getEnvDuration("DASHBOARD_CACHE_TTL", c.DashboardCacheTTL)
	c.ExportTTL = getEnvDuration("EXPORT_TTL", c.ExportTTL)
	c.CacheMaxEntries = getEnvInt("CACHE_MAX_ENTRIES", c.CacheMaxEntries)
	c.CacheCleanupInterval = getEnvDuration("CACHE_CLEANUP_INTERVAL", c.CacheCleanupInterval)

	c.ReportCurrency = getEnv("REPORT_CURRENCY", c.ReportCurrency)
	c.ExportRateLimit = getEnvInt("EXPORT_RATE_LIMIT", c.ExportRateLimit)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// MirrorScopes parses MirrorTenants. An empty list mirrors the host only.
func (c *Config) MirrorScopes() ([]tenant.Scope, error) {
	if len(c.MirrorTenants) == 0 {
		return []tenant.Scope{tenant.Host()}, nil
	}
	scopes := make([]tenant.Scope, 0, len(c.MirrorTenants))
	for _, v := range c.MirrorTenants {
		s, err := tenant.Parse(v)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.MirrorScopes(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid mirror tenants: %v", err))
	}
	if c.MirrorInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 minute", c.MirrorInterval))
	}

	// Validate caching
	if c.DashboardCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must be positive", c.DashboardCacheTTL))
	}
	if c.ExportTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid export TTL %v: must be positive", c.ExportTTL))
	}
	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must be at least 1", c.CacheMaxEntries))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	// Validate reports
	if len(strings.TrimSpace(c.ReportCurrency)) == 0 {
		errors = append(errors, "report currency cannot be empty")
	}
	if c.ExportRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid export rate limit %d: must be at least 1", c.ExportRateLimit))
	}

	// Validate logging
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
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

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
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendREST   = "rest"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendREST}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// REST
	RESTBaseURL string

	// Google Sheets
	GoogleSpreadsheetID     string
	GoogleTransactionsSheet string
	GoogleGroupsSheet       string

	// Fetching
	FetchTimeout time.Duration
	FetchRetries int

	// Snapshots
	SnapshotTTL       time.Duration
	SnapshotCacheSize int

	// Per-user ledger selections; an evicted user starts again with every
	// ledger active.
	RegistryTTL       time.Duration
	RegistryCacheSize int

	// Budget gauge ceiling used when a request names none.
	DefaultBudget int64

	// Mutating requests allowed per client per minute; 0 disables limiting.
	RateLimitPerMinute int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		DataDirectory: getEnv("DATA_DIRECTORY", "./data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ledgerbook.db"),
		RESTBaseURL:   getEnv("REST_BASE_URL", ""),

		GoogleSpreadsheetID:     getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleTransactionsSheet: getEnv("GOOGLE_TRANSACTIONS_SHEET", "Transactions"),
		GoogleGroupsSheet:       getEnv("GOOGLE_GROUPS_SHEET", "Groups"),

		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchRetries: getEnvInt("FETCH_RETRIES", 2),

		SnapshotTTL:       getEnvDuration("SNAPSHOT_TTL", 30*time.Second),
		SnapshotCacheSize: getEnvInt("SNAPSHOT_CACHE_SIZE", 256),

		RegistryTTL:       getEnvDuration("REGISTRY_TTL", 24*time.Hour),
		RegistryCacheSize: getEnvInt("REGISTRY_CACHE_SIZE", 1024),

		DefaultBudget: int64(getEnvInt("DEFAULT_BUDGET", 1000000)),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case BackendREST:
		if c.RESTBaseURL == "" {
			errors = append(errors, "REST_BASE_URL is required when using rest backend")
		} else if u, err := url.Parse(c.RESTBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid REST base URL '%s': %v", c.RESTBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid REST base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleTransactionsSheet == "" || c.GoogleGroupsSheet == "" {
			errors = append(errors, "Google transactions and groups sheet names cannot be empty")
		}
	}

	if c.FetchTimeout < 100*time.Millisecond || c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be between 100ms and 5m", c.FetchTimeout))
	}
	if c.FetchRetries < 0 || c.FetchRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid fetch retries %d: must be between 0 and 10", c.FetchRetries))
	}
	if c.SnapshotTTL < time.Second || c.SnapshotTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid snapshot TTL %v: must be between 1s and 24h", c.SnapshotTTL))
	}
	if c.SnapshotCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at least 1", c.SnapshotCacheSize))
	}
	if c.RegistryTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid registry TTL %v: must be at least 1m", c.RegistryTTL))
	}
	if c.RegistryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid registry cache size %d: must be at least 1", c.RegistryCacheSize))
	}
	if c.DefaultBudget < 0 {
		errors = append(errors, fmt.Sprintf("invalid default budget %d: must not be negative", c.DefaultBudget))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

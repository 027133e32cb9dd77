package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"salvadanaio/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	StorageBackend string
	SQLiteDBPath   string
	SnapshotKey    string
	SeedFile       string

	// Scheduler
	SchedulerInterval time.Duration
	LowFundsLookahead time.Duration

	// Engine
	StrictPercentages bool

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger
	GoogleSpreadsheetID string
	LedgerSheetName     string
	// LedgerBackfillWindow re-exports transactions newer than now minus the
	// window when the ledger worker starts; zero disables it.
	LedgerBackfillWindow time.Duration

	// Rate limiting
	RateLimitPerMinute int
	RateLimitBurst     int

	LogLevel string
}

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendSQLite),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/salvadanaio.db"),
		SnapshotKey:    getEnv("SNAPSHOT_KEY", "finance_wise_budget"),
		SeedFile:       getEnv("SEED_FILE", "./data/seed.toml"),

		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
		LowFundsLookahead: getEnvDuration("LOW_FUNDS_LOOKAHEAD", 3*time.Minute),

		StrictPercentages: getEnvBool("STRICT_PERCENTAGES", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "salvadanaio"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		GoogleSpreadsheetID:  getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheetName:      getEnv("LEDGER_SHEET_NAME", "Ledger"),
		LedgerBackfillWindow: getEnvDuration("LEDGER_BACKFILL_WINDOW", 0),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendSQLite, BackendMemory}
	switch c.StorageBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.StorageBackend, validBackends))
	}

	if strings.TrimSpace(c.SnapshotKey) == "" {
		errors = append(errors, "snapshot key cannot be empty")
	}

	if c.SchedulerInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at least 1 second", c.SchedulerInterval))
	} else if c.SchedulerInterval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at most 1 hour", c.SchedulerInterval))
	}
	if c.LowFundsLookahead < 0 {
		errors = append(errors, fmt.Sprintf("invalid low funds lookahead %v: must not be negative", c.LowFundsLookahead))
	}

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

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.LedgerSheetName) == "" {
		errors = append(errors, "ledger sheet name cannot be empty when a spreadsheet is configured")
	}
	if c.LedgerBackfillWindow < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger backfill window %v: must not be negative", c.LedgerBackfillWindow))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// LedgerEnabled reports whether committed transactions are published.
func (c *Config) LedgerEnabled() bool {
	return c.AMQPURL != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

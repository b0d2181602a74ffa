// This file contains the lightweight env-only configuration for the CLI
// binary. It reads no config files and touches no external services.
package config

import (
	"os"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
type LiteConfig struct {
	// Analysis settings
	AggregateJustifications bool // Join per-finding justifications instead of last-write-wins
	MaxReportBytes          int  // Input size cap

	// Case base (used when similarity search is requested)
	CaseBasePath string // SQLite database path
	SeedCaseBase bool   // Insert the reference cases into an empty store

	// Similarity settings
	EncoderDimension int // Local encoder vector dimension
	TopN             int // Similar cases to return

	// Encoder cache
	CacheSize int           // In-process embedding cache entries
	CacheTTL  time.Duration // Unused by the LRU tier, kept for parity with the server config

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	return &LiteConfig{
		AggregateJustifications: false,
		MaxReportBytes:          1 << 20,
		CaseBasePath:            "./data/cases.db",
		SeedCaseBase:            true,
		EncoderDimension:        384,
		TopN:                    3,
		CacheSize:               1000,
		CacheTTL:                24 * time.Hour,
		LogLevel:                "info",
		LogFormat:               "text",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("BIRADS_ANALYSIS_AGGREGATE_JUSTIFICATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AggregateJustifications = b
		}
	}
	if v := os.Getenv("BIRADS_ANALYSIS_MAX_REPORT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxReportBytes = n
		}
	}

	if v := os.Getenv("BIRADS_CASEBASE_PATH"); v != "" {
		cfg.CaseBasePath = v
	}
	if v := os.Getenv("BIRADS_CASEBASE_SEED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SeedCaseBase = b
		}
	}

	if v := os.Getenv("BIRADS_ENCODER_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EncoderDimension = n
		}
	}
	if v := os.Getenv("BIRADS_SIMILARITY_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopN = n
		}
	}

	if v := os.Getenv("BIRADS_ENCODER_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheSize = n
		}
	}
	if v := os.Getenv("BIRADS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("BIRADS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BIRADS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// Package config loads server configuration from yaml files and the
// environment via viper, plus a lightweight env-only configuration for the
// CLI binary.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/birads-report-server/internal/domain"
)

// Manager loads and holds the typed server configuration.
type Manager struct {
	config *domain.Config
}

// NewManager creates a configuration manager. A missing config file is not
// an error; defaults and environment variables apply.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/birads-report-server/")

	viper.SetEnvPrefix("BIRADS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "15s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Analysis defaults
	viper.SetDefault("analysis.aggregate_justifications", false)
	viper.SetDefault("analysis.max_report_bytes", 1<<20)
	viper.SetDefault("analysis.result_cache_size", 256)
	viper.SetDefault("analysis.result_cache_ttl", "10m")

	// Case base defaults
	viper.SetDefault("casebase.path", "./data/cases.db")
	viper.SetDefault("casebase.seed", true)

	// Archive defaults (disabled unless configured)
	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.host", "localhost")
	viper.SetDefault("archive.port", 5432)
	viper.SetDefault("archive.database", "birads_reports")
	viper.SetDefault("archive.username", "postgres")
	viper.SetDefault("archive.password", "")
	viper.SetDefault("archive.ssl_mode", "disable")
	viper.SetDefault("archive.max_conns", 10)
	viper.SetDefault("archive.min_conns", 2)
	viper.SetDefault("archive.conn_max_lifetime", "30m")
	viper.SetDefault("archive.conn_max_idle_time", "5m")
	viper.SetDefault("archive.migrations_path", "./migrations")

	// Embedding cache defaults (tier 2, disabled unless configured)
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Encoder defaults
	viper.SetDefault("encoder.mode", "local")
	viper.SetDefault("encoder.base_url", "")
	viper.SetDefault("encoder.api_key", "")
	viper.SetDefault("encoder.model", "bio-clinical-embed")
	viper.SetDefault("encoder.dimension", 384)
	viper.SetDefault("encoder.timeout", "30s")
	viper.SetDefault("encoder.rate_limit", 10)
	viper.SetDefault("encoder.fallback_local", true)
	viper.SetDefault("encoder.cache_size", 1000)

	// Similarity defaults
	viper.SetDefault("similarity.top_n", 3)

	// MCP defaults
	viper.SetDefault("mcp.server_name", "birads-report-server")
	viper.SetDefault("mcp.server_version", "v0.1.0")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns the HTTP server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetArchiveConfig returns the analysis archive configuration.
func (m *Manager) GetArchiveConfig() *domain.ArchiveConfig {
	return &m.config.Archive
}

// Reload reloads the configuration from its sources.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate checks the loaded configuration for inconsistencies.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	if config.CaseBase.Path == "" {
		return fmt.Errorf("case base path is required")
	}

	if config.Archive.Enabled {
		if config.Archive.Host == "" {
			return fmt.Errorf("archive host is required when the archive is enabled")
		}
		if config.Archive.Database == "" {
			return fmt.Errorf("archive database name is required when the archive is enabled")
		}
		if config.Archive.Username == "" {
			return fmt.Errorf("archive username is required when the archive is enabled")
		}
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the embedding cache is enabled")
	}

	switch config.Encoder.Mode {
	case "local":
	case "remote":
		if config.Encoder.BaseURL == "" {
			return fmt.Errorf("encoder base URL is required in remote mode")
		}
	default:
		return fmt.Errorf("invalid encoder mode: %s", config.Encoder.Mode)
	}

	if config.Similarity.TopN <= 0 {
		return fmt.Errorf("similarity top_n must be positive: %d", config.Similarity.TopN)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// ArchiveDatabaseURL returns the Postgres connection URL for the archive,
// in the form golang-migrate and pgx both accept.
func (m *Manager) ArchiveDatabaseURL() string {
	a := m.config.Archive
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		a.Username, a.Password, a.Host, a.Port, a.Database, a.SSLMode)
}

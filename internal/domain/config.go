package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	CaseBase   CaseBaseConfig   `mapstructure:"casebase"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Encoder    EncoderConfig    `mapstructure:"encoder"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	MCP        MCPConfig        `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug", "release", "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json", "text"
	Output string `mapstructure:"output"` // "stdout", "stderr", or a file path
}

// AnalysisConfig tunes the report-analysis pipeline and its response cache.
type AnalysisConfig struct {
	// AggregateJustifications switches the engine's per-finding branch from
	// the carried last-write-wins justification to space-joined aggregation.
	AggregateJustifications bool          `mapstructure:"aggregate_justifications"`
	MaxReportBytes          int           `mapstructure:"max_report_bytes"`
	ResultCacheSize         int           `mapstructure:"result_cache_size"`
	ResultCacheTTL          time.Duration `mapstructure:"result_cache_ttl"`
}

// CaseBaseConfig represents the embedded case-store configuration.
type CaseBaseConfig struct {
	Path string `mapstructure:"path"`
	Seed bool   `mapstructure:"seed"`
}

// ArchiveConfig represents the optional Postgres analysis archive.
type ArchiveConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents the optional Redis embedding-cache configuration.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// EncoderConfig represents the text-encoder selection and remote-client
// tuning for the similarity feature.
type EncoderConfig struct {
	Mode          string        `mapstructure:"mode"` // "local", "remote"
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Dimension     int           `mapstructure:"dimension"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimit     int           `mapstructure:"rate_limit"` // requests per second
	FallbackLocal bool          `mapstructure:"fallback_local"`
	CacheSize     int           `mapstructure:"cache_size"`
}

// SimilarityConfig tunes the similar-case search.
type SimilarityConfig struct {
	TopN int `mapstructure:"top_n"`
}

// MCPConfig represents MCP server metadata.
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}

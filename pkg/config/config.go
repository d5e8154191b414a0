// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Indexer, Search, Corpus, Redis, Logging,
// Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Indexer IndexerConfig `yaml:"indexer"`
	Search  SearchConfig  `yaml:"search"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds serve-mode HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexerConfig controls the build path.
type IndexerConfig struct {
	// Shards is the number of parallel builders; 1 builds sequentially.
	Shards int `yaml:"shards"`
}

// SearchConfig controls query execution limits.
type SearchConfig struct {
	// MaxQueryTerms caps the number of terms accepted per serve-mode query.
	MaxQueryTerms int `yaml:"maxQueryTerms"`
}

// CorpusConfig holds database-backed corpus source settings.
type CorpusConfig struct {
	// Table is the corpus table for SQLite and PostgreSQL sources. It needs
	// integer `id` and text `content` columns.
	Table string `yaml:"table"`
}

// RedisConfig holds the optional serve-mode query cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics listener.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if cfg.Indexer.Shards < 1 {
		return nil, fmt.Errorf("indexer.shards must be at least 1, got %d", cfg.Indexer.Shards)
	}
	return cfg, nil
}

// defaultConfig returns a Config with defaults for local use.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Indexer: IndexerConfig{
			Shards: 1,
		},
		Search: SearchConfig{
			MaxQueryTerms: 32,
		},
		Corpus: CorpusConfig{
			Table: "documents",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TI_INDEXER_SHARDS"); v != "" {
		if shards, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Shards = shards
		}
	}
	if v := os.Getenv("TI_CORPUS_TABLE"); v != "" {
		cfg.Corpus.Table = v
	}
	if v := os.Getenv("TI_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("TI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

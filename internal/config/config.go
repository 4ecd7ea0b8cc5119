// Package config provides configuration management for Engram. It loads
// settings from environment variables with the ENGRAM_ prefix and provides
// sensible defaults for all configuration options, following the same
// struct-of-structs / getEnv* convention used throughout this codebase.
//
// Non-secret fields (rate limits, cleanup schedule, comment size ceilings)
// may additionally be overridden by a YAML file named by ENGRAM_CONFIG_FILE;
// secrets (API keys, passwords) are environment-only (spec §6.4, SPEC_FULL
// §6.4.1).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every configuration setting for the Engram process. It is
// built once at startup and is immutable for the process lifetime (spec §9,
// "Configuration is process-wide").
type Config struct {
	Redis    RedisConfig
	Vector   VectorConfig
	Embedder ProviderConfig
	Curator  ProviderConfig
	Security SecurityConfig
	RateLimit RateLimitConfig
	Cleanup  CleanupConfig
	Server   ServerConfig
}

// RedisConfig describes how to reach the durable record/index store (C3).
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address suitable for redis.Options.Addr.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// VectorConfig carries the deployment-wide embedding dimension D (spec §3.1).
type VectorConfig struct {
	Dimension int
}

// ProviderConfig configures a pluggable upstream collaborator (C1 embedder
// or C2 curator); both share the same shape (provider/model/key/base URL).
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// SecurityConfig configures API-key auth, admin credentials, and input
// sanitisation ceilings (spec §4.6).
type SecurityConfig struct {
	APIKey            string
	AuthEnabled       bool
	AdminUser         string
	AdminPassword     string
	CommentMaxBytes   int
	RequestMaxBytes   int
}

// RateLimitConfig configures the per-client fixed-window limiter (spec §4.6).
type RateLimitConfig struct {
	PerMinute    int
	PerHour      int
	BlockSeconds int
}

// CleanupConfig configures the scheduler's three recurring jobs (spec §4.5)
// and the durable run journal (SPEC_FULL §4.5.1). The journal prunes itself
// (scheduler.Journal.Prune) rather than relying on a separate on-disk
// backup/retention service (DESIGN.md).
type CleanupConfig struct {
	DailyCron     string
	WeeklyCron    string
	MonthlyCron   string
	JournalDBPath string
}

// ServerConfig configures the combined HTTP/MCP listener (spec §6.1, §6.4).
type ServerConfig struct {
	Addr        string
	WorkerCount int
}

// yamlOverride mirrors the subset of Config that may be overridden by a
// config file; secrets are deliberately absent from this shape.
type yamlOverride struct {
	RateLimit *struct {
		PerMinute    *int `yaml:"per_minute"`
		PerHour      *int `yaml:"per_hour"`
		BlockSeconds *int `yaml:"block_seconds"`
	} `yaml:"rate_limit"`
	Cleanup *struct {
		DailyCron   *string `yaml:"daily_cron"`
		WeeklyCron  *string `yaml:"weekly_cron"`
		MonthlyCron *string `yaml:"monthly_cron"`
	} `yaml:"cleanup"`
	Security *struct {
		CommentMaxBytes *int `yaml:"comment_max_bytes"`
		RequestMaxBytes *int `yaml:"request_max_bytes"`
	} `yaml:"security"`
}

// Load builds a Config from environment variables, then applies a YAML
// override file if ENGRAM_CONFIG_FILE is set.
func Load() (*Config, error) {
	cfg := buildBaseConfig()

	if path := getEnv("ENGRAM_CONFIG_FILE", ""); path != "" {
		if err := applyYAMLOverride(cfg, path); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	return cfg, nil
}

func applyYAMLOverride(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override yamlOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	if rl := override.RateLimit; rl != nil {
		if rl.PerMinute != nil {
			cfg.RateLimit.PerMinute = *rl.PerMinute
		}
		if rl.PerHour != nil {
			cfg.RateLimit.PerHour = *rl.PerHour
		}
		if rl.BlockSeconds != nil {
			cfg.RateLimit.BlockSeconds = *rl.BlockSeconds
		}
	}
	if cl := override.Cleanup; cl != nil {
		if cl.DailyCron != nil {
			cfg.Cleanup.DailyCron = *cl.DailyCron
		}
		if cl.WeeklyCron != nil {
			cfg.Cleanup.WeeklyCron = *cl.WeeklyCron
		}
		if cl.MonthlyCron != nil {
			cfg.Cleanup.MonthlyCron = *cl.MonthlyCron
		}
	}
	if sec := override.Security; sec != nil {
		if sec.CommentMaxBytes != nil {
			cfg.Security.CommentMaxBytes = *sec.CommentMaxBytes
		}
		if sec.RequestMaxBytes != nil {
			cfg.Security.RequestMaxBytes = *sec.RequestMaxBytes
		}
	}
	return nil
}

// buildBaseConfig constructs a Config from environment variables and
// defaults (SPEC_FULL §6.4.1).
func buildBaseConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			Host:     getEnv("ENGRAM_REDIS_HOST", "localhost"),
			Port:     getEnvInt("ENGRAM_REDIS_PORT", 6379),
			Password: getEnv("ENGRAM_REDIS_PASSWORD", ""),
			DB:       getEnvInt("ENGRAM_REDIS_DB", 0),
		},
		Vector: VectorConfig{
			Dimension: getEnvInt("ENGRAM_VECTOR_DIM", 768),
		},
		Embedder: ProviderConfig{
			Provider: getEnv("ENGRAM_EMBEDDER_PROVIDER", "fake"),
			Model:    getEnv("ENGRAM_EMBEDDER_MODEL", ""),
			APIKey:   getEnv("ENGRAM_EMBEDDER_API_KEY", ""),
			BaseURL:  getEnv("ENGRAM_EMBEDDER_BASE_URL", ""),
		},
		Curator: ProviderConfig{
			Provider: getEnv("ENGRAM_CURATOR_PROVIDER", "fake"),
			Model:    getEnv("ENGRAM_CURATOR_MODEL", ""),
			APIKey:   getEnv("ENGRAM_CURATOR_API_KEY", ""),
			BaseURL:  getEnv("ENGRAM_CURATOR_BASE_URL", ""),
		},
		Security: SecurityConfig{
			APIKey:          getEnv("ENGRAM_API_KEY", ""),
			AuthEnabled:     getEnvBool("ENGRAM_AUTH_ENABLED", true),
			AdminUser:       getEnv("ENGRAM_ADMIN_USER", ""),
			AdminPassword:   getEnv("ENGRAM_ADMIN_PASSWORD", ""),
			CommentMaxBytes: getEnvInt("ENGRAM_COMMENT_MAX_BYTES", 10_000),
			RequestMaxBytes: getEnvInt("ENGRAM_REQUEST_MAX_BYTES", 1<<20),
		},
		RateLimit: RateLimitConfig{
			PerMinute:    getEnvInt("ENGRAM_RATE_LIMIT_PER_MINUTE", 60),
			PerHour:      getEnvInt("ENGRAM_RATE_LIMIT_PER_HOUR", 1000),
			BlockSeconds: getEnvInt("ENGRAM_RATE_LIMIT_BLOCK_SECONDS", 3600),
		},
		Cleanup: CleanupConfig{
			DailyCron:     getEnv("ENGRAM_CLEANUP_DAILY_CRON", "@daily"),
			WeeklyCron:    getEnv("ENGRAM_CLEANUP_WEEKLY_CRON", "@weekly"),
			MonthlyCron:   getEnv("ENGRAM_CLEANUP_MONTHLY_CRON", "@monthly"),
			JournalDBPath: getEnv("ENGRAM_JOURNAL_DB_PATH", "./engram-journal.db"),
		},
		Server: ServerConfig{
			Addr:        getEnv("ENGRAM_HTTP_ADDR", ":8085"),
			WorkerCount: getEnvInt("ENGRAM_WORKER_COUNT", runtime.NumCPU()),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" as true and "false", "0", "no" as
// false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (parsed via
// time.ParseDuration) or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

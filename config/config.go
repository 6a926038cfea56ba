// Package config loads the console's settings from the environment, with an
// optional YAML file layered on top.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the variable holding the YAML overlay path.
const EnvConfigFile = "ADMIN_CONFIG"

type Config struct {
	// HTTP Server
	Port           string   `yaml:"port"`
	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`

	// Database
	DBPath string `yaml:"db_path"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// AMQP. Publishing is disabled when AMQPURL is empty.
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Charts
	ChartCacheTTL        time.Duration `yaml:"chart_cache_ttl"`
	ChartRefreshInterval time.Duration `yaml:"chart_refresh_interval"`
	ChartTheme           string        `yaml:"chart_theme"`
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 2<<20)),

		DBPath: getEnv("DB_PATH", "./data/admin.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "admin.events"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "admin.mutations"),

		ChartCacheTTL:        getEnvDuration("CHART_CACHE_TTL", 10*time.Minute),
		ChartRefreshInterval: getEnvDuration("CHART_REFRESH_INTERVAL", time.Minute),
		ChartTheme:           getEnv("CHART_THEME", "westeros"),
	}
}

// Load reads the environment and then overlays the YAML file at path, or at
// $ADMIN_CONFIG when path is empty. Keys absent from the file keep their
// environment value.
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return cfg, nil
	}
	if err := cfg.overlay(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// AMQPEnabled reports whether mutation events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errs = append(errs, errors.New("database path cannot be empty"))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, errors.New("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
		if c.AMQPQueue == "" {
			errs = append(errs, errors.New("AMQP queue name cannot be empty when AMQP URL is provided"))
		}
	}

	if c.ChartCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid chart cache TTL %v: must not be negative", c.ChartCacheTTL))
	}
	if c.ChartRefreshInterval != 0 && c.ChartRefreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("invalid chart refresh interval %v: must be 0 (disabled) or at least 1 second", c.ChartRefreshInterval))
	}

	if c.MaxUploadBytes < 1024 {
		errs = append(errs, fmt.Errorf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

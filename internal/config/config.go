package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int            `yaml:"port"`
	AppEnv         string         `yaml:"app_env"`
	SecretKey      string         `yaml:"secret_key"`
	PostsPerPage   int            `yaml:"posts_per_page"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Database       DatabaseConfig `yaml:"database"`
	Logging        LoggingConfig  `yaml:"logging"`
	Activity       ActivityConfig `yaml:"activity"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	URL    string `yaml:"url"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ActivityConfig controls how long activity events are kept.
type ActivityConfig struct {
	Retention time.Duration `yaml:"retention"`
	PruneCron string        `yaml:"prune_cron"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort:     8080,
		AppEnv:         "development",
		SecretKey:      "12345",
		PostsPerPage:   5,
		AllowedOrigins: []string{"http://localhost:3000"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "./app.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Activity: ActivityConfig{
			Retention: 30 * 24 * time.Hour,
			PruneCron: "@hourly",
		},
	}
}

// Load reads the YAML file at path (if it exists) over the defaults, then
// applies environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.ServerPort = port
	}
	if v, ok := os.LookupEnv("POSTS_PER_PAGE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POSTS_PER_PAGE: %w", err)
		}
		c.PostsPerPage = n
	}
	if v, ok := os.LookupEnv("ACTIVITY_RETENTION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ACTIVITY_RETENTION: %w", err)
		}
		c.Activity.Retention = d
	}
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.SecretKey = getEnv("SECRET_KEY", c.SecretKey)
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Activity.PruneCron = getEnv("ACTIVITY_PRUNE_CRON", c.Activity.PruneCron)
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("port %d out of range", c.ServerPort)
	}
	if c.PostsPerPage < 1 {
		return fmt.Errorf("posts_per_page must be positive, got %d", c.PostsPerPage)
	}
	if c.SecretKey == "" {
		return errors.New("secret_key must not be empty")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Activity.Retention <= 0 {
		return fmt.Errorf("activity retention must be positive, got %s", c.Activity.Retention)
	}
	if _, err := cron.ParseStandard(c.Activity.PruneCron); err != nil {
		return fmt.Errorf("invalid activity prune_cron: %w", err)
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

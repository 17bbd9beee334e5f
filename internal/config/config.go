package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kiwari-pos/opsdash/internal/codec"
	"gopkg.in/yaml.v3"
)

// Config holds the server settings, read from the environment and an
// optional YAML file.
type Config struct {
	Port              string        `yaml:"port"`
	DatabaseURL       string        `yaml:"database_url"`
	JWTSecret         string        `yaml:"jwt_secret"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	SyncInterval      time.Duration `yaml:"sync_interval"`
	NewCustomerWindow time.Duration `yaml:"new_customer_window"`
	StrictTransitions bool          `yaml:"strict_transitions"`
	ExportFormat      codec.Format  `yaml:"export_format"`
}

// Load reads the environment, then overlays the YAML file named by
// OPSDASH_CONFIG when it is set. An empty DATABASE_URL runs the server on the
// embedded demo dataset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8081"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		StrictTransitions: getEnv("STRICT_TRANSITIONS", "false") == "true",
		ExportFormat:      codec.Format(getEnv("EXPORT_FORMAT", string(codec.JSON))),
	}

	var err error
	if cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.NewCustomerWindow, err = getDuration("NEW_CUSTOMER_WINDOW", 7*24*time.Hour); err != nil {
		return nil, err
	}

	if path := os.Getenv("OPSDASH_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that the server cannot start without and
// normalizes the export format.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be positive, got %s", c.SyncInterval)
	}
	if c.NewCustomerWindow <= 0 {
		return fmt.Errorf("new_customer_window must be positive, got %s", c.NewCustomerWindow)
	}
	format, err := codec.ParseFormat(string(c.ExportFormat))
	if err != nil {
		return fmt.Errorf("export_format: %w", err)
	}
	c.ExportFormat = format
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
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

// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	ExamplesDB  string
	SessionTTL  time.Duration

	// CheckpointSteps is the length of the relaxation sub-sequence.
	CheckpointSteps int

	Generator GeneratorConfig
}

// GeneratorConfig controls the generative decision collaborator. An empty
// APIKey disables it; the engine then runs on its rule ladder and local
// defaults alone.
type GeneratorConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// Enabled reports whether the generative collaborator is configured.
func (g GeneratorConfig) Enabled() bool {
	return g.APIKey != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		DBPath:          getEnv("DB_PATH", "./data/sessions.db"),
		ExamplesDB:      getEnv("EXAMPLES_DB_PATH", "./data/examples.db"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		CheckpointSteps: getEnvInt("CHECKPOINT_STEPS", 3),
		Generator: GeneratorConfig{
			APIKey:         getEnv("GOOGLE_API_KEY", ""),
			Model:          getEnv("GENERATOR_MODEL", ""),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", ""),
			Timeout:        getEnvDuration("GENERATOR_TIMEOUT", 20*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ExamplesDB == "" {
		return fmt.Errorf("EXAMPLES_DB_PATH cannot be empty")
	}
	if c.CheckpointSteps <= 0 {
		return fmt.Errorf("CHECKPOINT_STEPS must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
)

// Config holds all process configuration, loaded from the environment
// (with an optional .env file loaded first).
type Config struct {
	Service   ServiceConfig
	Scheduler SchedulerConfig
	LLM       LLMConfig
}

// ServiceConfig holds HTTP-surface settings shared by the serve/coordinator/
// worker commands.
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// SchedulerConfig holds local-engine execution tuning.
type SchedulerConfig struct {
	MaxConcurrency int
	PollInterval   time.Duration
}

// LLMConfig holds the OpenAI-compatible endpoint settings read from the
// environment. The llm executor does not read this struct; it consults
// OPENAI_API_KEY and OPENAI_BASE_URL itself.
type LLMConfig struct {
	APIKey  string
	BaseURL string
}

// Load reads .env (if present) and then environment variables into a
// Config, defaulting any field left unset.
func Load(serviceName string) (*Config, error) {
	_ = gotenv.Load() // best-effort; absence of .env is not an error

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Scheduler: SchedulerConfig{
			MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),
			PollInterval:   getEnvDuration("SCHEDULER_POLL_INTERVAL_MS", 100*time.Millisecond),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}
	if c.Scheduler.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultMillis time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultMillis
}

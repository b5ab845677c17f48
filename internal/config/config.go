package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// OpenRouter
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string

	// Receipt scanning
	AIScanEnabled     bool
	ProcessingTimeout time.Duration
	ScanRateLimit     int           // requests per window, per user
	ScanRateWindow    time.Duration // window for ScanRateLimit

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	cfg := &Config{
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "receipts"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AIScanEnabled:     getEnvBool("AI_SCAN_ENABLED", true),
		ProcessingTimeout: getEnvDuration("PROCESSING_TIMEOUT", 20*time.Second),
		ScanRateLimit:     getEnvInt("SCAN_RATE_LIMIT", 10),
		ScanRateWindow:    getEnvDuration("SCAN_RATE_WINDOW", time.Hour),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.AIScanEnabled && c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required while AI_SCAN_ENABLED is true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"invoiceai/internal/logger"
)

// ErrMissingOpenAIKey is returned by RequireAssistant when OPENAI_API_KEY is unset.
var ErrMissingOpenAIKey = errors.New("OPENAI_API_KEY is required")

type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Assistant loop
	AssistantMaxSteps int
	AssistantTimeout  time.Duration

	// Record store
	DatabaseDriver string // sqlite or postgres
	DatabaseURL    string

	// Preview links are built as {AppURL}/invoice/{draftId}
	AppURL string

	// TestUserID substitutes for a real identity in local/dev use
	TestUserID string

	// UsagePlan meters authenticated users: free, pro or business
	UsagePlan string

	// HTTP API
	HTTPAddr string

	// Google Sheets ledger export
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		AssistantMaxSteps:    getEnvInt("ASSISTANT_MAX_STEPS", 8),
		AssistantTimeout:     time.Duration(getEnvInt("ASSISTANT_TIMEOUT_SECONDS", 30)) * time.Second,
		DatabaseDriver:       strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:          getEnv("DATABASE_URL", "invoiceai.db"),
		AppURL:               strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		TestUserID:           getEnv("TEST_USER_ID", ""),
		UsagePlan:            strings.ToLower(getEnv("USAGE_PLAN", "free")),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Invoices"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.UsagePlan {
	case "free", "pro", "business":
	default:
		return fmt.Errorf("USAGE_PLAN must be free, pro or business, got %q", c.UsagePlan)
	}
	if c.AssistantMaxSteps < 1 {
		return fmt.Errorf("ASSISTANT_MAX_STEPS must be at least 1")
	}
	if !strings.HasPrefix(c.AppURL, "http://") && !strings.HasPrefix(c.AppURL, "https://") {
		return fmt.Errorf("APP_URL must be an http(s) URL, got %q", c.AppURL)
	}
	return nil
}

// RequireAssistant checks the settings only the model-backed commands need.
func (c *Config) RequireAssistant() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingOpenAIKey
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceai/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "ASSISTANT_MAX_STEPS", "ASSISTANT_TIMEOUT_SECONDS",
		"DATABASE_DRIVER", "DATABASE_URL", "APP_URL", "TEST_USER_ID", "HTTP_ADDR", "USAGE_PLAN",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, 8, cfg.AssistantMaxSteps)
	assert.Equal(t, 30*time.Second, cfg.AssistantTimeout)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "http://localhost:3000", cfg.AppURL)
	assert.Equal(t, "free", cfg.UsagePlan)
	assert.ErrorIs(t, cfg.RequireAssistant(), config.ErrMissingOpenAIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ASSISTANT_MAX_STEPS", "3")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/invoiceai")
	t.Setenv("APP_URL", "https://app.example.com/")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.AssistantMaxSteps)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "https://app.example.com", cfg.AppURL)
	assert.NoError(t, cfg.RequireAssistant())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := config.Load()
	assert.Error(t, err)
}

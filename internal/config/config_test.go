package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "LeadScout/1.0", cfg.RedditUserAgent)
	assert.Equal(t, 30, cfg.RedditRateLimit)
	assert.Equal(t, 100, cfg.HackerNewsRateLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDDIT_RATE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 5, cfg.RedditRateLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "Valid default config",
			mutate: func(c *Config) {},
		},
		{
			name:    "Reddit client id without secret",
			mutate:  func(c *Config) { c.RedditClientID = "id" },
			wantErr: "must be set together",
		},
		{
			name:    "Notification email without SMTP",
			mutate:  func(c *Config) { c.NotificationEmail = "sales@example.com" },
			wantErr: "SMTP configuration is required",
		},
		{
			name: "Notification email with SMTP",
			mutate: func(c *Config) {
				c.NotificationEmail = "sales@example.com"
				c.SMTPHost = "smtp.example.com"
				c.SMTPUsername = "user"
				c.SMTPPassword = "pass"
			},
		},
		{
			name:    "Negative rate limit",
			mutate:  func(c *Config) { c.RedditRateLimit = -1 },
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{RedditRateLimit: 30, HackerNewsRateLimit: 100}
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

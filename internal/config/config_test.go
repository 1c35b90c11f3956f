package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.AllowedHost)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.clipstream.dev/, https://www.clipstream.dev,https://app.clipstream.dev")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.clipstream.dev", "https://www.clipstream.dev"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.False(t, cfg.CookieSecure)
}

func TestLoad_Production(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HOST", "https://api.clipstream.dev:443/")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")

	_, err := Load()
	require.Error(t, err, "development secrets are rejected")

	t.Setenv("ACCESS_TOKEN_SECRET", "prod-access")
	t.Setenv("REFRESH_TOKEN_SECRET", "prod-refresh")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api.clipstream.dev", cfg.AllowedHost)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreDriver:        "mongo",
			AccessTokenSecret:  "a",
			RefreshTokenSecret: "b",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
		}
	}

	tests := map[string]func(c *Config){
		"same secrets":   func(c *Config) { c.RefreshTokenSecret = c.AccessTokenSecret },
		"empty secret":   func(c *Config) { c.AccessTokenSecret = "" },
		"zero ttl":       func(c *Config) { c.AccessTokenTTL = 0 },
		"unknown driver": func(c *Config) { c.StoreDriver = "sqlite" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := base()
	assert.NoError(t, c.Validate())
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ModeOffline, cfg.Mode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, time.Second, cfg.SessionTick)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.EnableLocalAuth)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:5500"}, cfg.CORSOrigins())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "prod-secret")
	t.Setenv("SESSION_TICK", "250ms")
	t.Setenv("CORS_ORIGINS_ONLINE", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.SessionTick)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}

func TestLoadRejectsDevSecretOnline(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("MODE", "online")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\ndb_driver: postgres\nsession_retention: 1m\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, time.Minute, cfg.SessionRetention)
	assert.Equal(t, config.ModeOffline, cfg.Mode)
}

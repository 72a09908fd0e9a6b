package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 24, cfg.JWTExpirationHours)
	assert.Equal(t, 256, cfg.WSSendQueueSize)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("WS_SEND_QUEUE_SIZE", "16")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")

	cfg := Load()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 16, cfg.WSSendQueueSize)
	assert.Equal(t, 2, cfg.JWTExpirationHours)
}

func TestLoad_InvalidQueueSizeFallsBack(t *testing.T) {
	t.Setenv("WS_SEND_QUEUE_SIZE", "0")

	cfg := Load()
	assert.Equal(t, 256, cfg.WSSendQueueSize)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notewiz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME: fromfile\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg := Load()

	assert.Equal(t, "fromfile", cfg.DBName)
	assert.Equal(t, "debug", cfg.LogLevel)
}

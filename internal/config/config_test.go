package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "100MiB", cfg.Server.MaxUploadSize)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/drive"}, cfg.Drive.Scopes)
	assert.Empty(t, cfg.Drive.Endpoint)
	assert.Empty(t, cfg.Drive.TokenURL)
	assert.Equal(t, 10, cfg.Drive.PageSize)
	assert.Equal(t, 4, cfg.Upload.Workers)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
	assert.Equal(t, "0", cfg.Credentials.TokenTTL)
}

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestDefaultConfig_Independent(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()

	a.Drive.Scopes[0] = "changed"
	assert.Equal(t, "https://www.googleapis.com/auth/drive", b.Drive.Scopes[0])
}

func TestParsedAccessors(t *testing.T) {
	cfg := DefaultConfig()

	read, write, idle, shutdown := cfg.Server.Timeouts()
	assert.Equal(t, 30*time.Second, read)
	assert.Equal(t, 10*time.Minute, write)
	assert.Equal(t, 2*time.Minute, idle)
	assert.Equal(t, 15*time.Second, shutdown)

	assert.Equal(t, int64(100<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, 16<<20, cfg.Drive.UploadChunkBytes())
	assert.Zero(t, cfg.Credentials.TTL())

	cfg.Credentials.TokenTTL = "24h"
	assert.Equal(t, 24*time.Hour, cfg.Credentials.TTL())
}

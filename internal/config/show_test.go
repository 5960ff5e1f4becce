package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_Defaults(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, RenderEffective(DefaultConfig(), "", &buf))

	output := buf.String()
	assert.Contains(t, output, "none, defaults only")
	assert.Contains(t, output, "[server]")
	assert.Contains(t, output, "[drive]")
	assert.Contains(t, output, "[upload]")
	assert.Contains(t, output, "[logging]")
	assert.Contains(t, output, "[credentials]")
	assert.Contains(t, output, `max_upload_size  = "100MiB"`)
	assert.NotContains(t, output, "endpoint")
	assert.NotContains(t, output, "token_url")
}

func TestRenderEffective_OptionalFieldsShown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Drive.Endpoint = "http://localhost:9000/drive/v3/"
	cfg.Drive.TokenURL = "http://localhost:9000/token"
	cfg.Drive.Scopes = []string{"a", "b"}

	var buf bytes.Buffer

	require.NoError(t, RenderEffective(cfg, "/etc/drivegate/config.toml", &buf))

	output := buf.String()
	assert.Contains(t, output, "/etc/drivegate/config.toml")
	assert.Contains(t, output, `endpoint          = "http://localhost:9000/drive/v3/"`)
	assert.Contains(t, output, `token_url         = "http://localhost:9000/token"`)
	assert.Contains(t, output, `scopes            = ["a", "b"]`)
}

// The rendered output is itself a loadable config file.
func TestRenderEffective_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 9123
	cfg.Logging.LogLevel = "debug"

	var buf bytes.Buffer

	require.NoError(t, RenderEffective(cfg, "", &buf))

	decoded := DefaultConfig()
	md, err := toml.Decode(buf.String(), decoded)
	require.NoError(t, err)
	assert.Empty(t, md.Undecoded())
	assert.Equal(t, cfg, decoded)
}

type failWriter struct{ calls int }

func (f *failWriter) Write([]byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestRenderEffective_WriteError(t *testing.T) {
	w := &failWriter{}

	err := RenderEffective(DefaultConfig(), "", w)
	require.Error(t, err)
	assert.Equal(t, "disk full", err.Error())
	assert.Equal(t, 1, w.calls)
}

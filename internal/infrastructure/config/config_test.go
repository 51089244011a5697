package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stream-listener/internal/infrastructure/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 256, cfg.HistorySize)
	assert.Equal(t, logger.LevelInfo, cfg.Log.Level)
	assert.Empty(t, cfg.Streams)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
log:
  level: debug
  format: json
history_size: 16
transport:
  sse:
    initial_retry: 500ms
    read_timeout: 1m
    headers:
      Authorization: Bearer token
  websocket:
    handshake_timeout: 3s
streams:
  - name: ticks
    address: https://example.com/ticks
    stop_on: done
    max_events: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, logger.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 100, cfg.Log.MaxSize, "unset log fields keep their defaults")
	assert.Equal(t, 16, cfg.HistorySize)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.SSE.InitialRetry)
	assert.Equal(t, time.Minute, cfg.Transport.SSE.ReadTimeout)
	assert.Equal(t, "Bearer token", cfg.Transport.SSE.Headers["Authorization"])
	assert.Equal(t, 3*time.Second, cfg.Transport.WebSocket.HandshakeTimeout)

	require.Len(t, cfg.Streams, 1)
	assert.Equal(t, StreamConfig{
		Name:      "ticks",
		Address:   "https://example.com/ticks",
		StopOn:    "done",
		MaxEvents: 10,
	}, cfg.Streams[0])
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STREAM_LISTENER_ADDR", "127.0.0.1:7000")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_OUTPUT", "file")
	t.Setenv("LOG_FILE_PATH", "/tmp/listener.log")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, logger.LevelError, cfg.Log.Level)
	assert.Equal(t, "file", cfg.Log.Output)
	assert.Equal(t, "/tmp/listener.log", cfg.Log.FilePath)
}

func TestInvalidEnvLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	path := writeConfig(t, `
history_size: -1
streams:
  - name: a
    address: ""
  - name: a
    address: http://x/y
    max_events: -2
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_size")
	assert.Contains(t, err.Error(), "streams[0].address")
	assert.Contains(t, err.Error(), "streams[1].max_events")
	assert.Contains(t, err.Error(), `"a" is duplicated`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}

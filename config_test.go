package credora

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8000", cfg.APIURL)
		assert.Empty(t, cfg.WSURL)
		assert.Equal(t, DefaultMaxReconnectAttempts, cfg.MaxReconnectAttempts)
		assert.Equal(t, DefaultReconnectDelay, cfg.ReconnectDelay)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, LogFormatText, cfg.LogFormat)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("CREDORA_WS_URL", "wss://notify.credora.example/ws")
		t.Setenv("CREDORA_WS_MAX_RECONNECT_ATTEMPTS", "8")
		t.Setenv("CREDORA_WS_RECONNECT_DELAY", "750ms")
		t.Setenv("CREDORA_LOG_LEVEL", "debug")
		t.Setenv("CREDORA_LOG_FORMAT", "json")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "wss://notify.credora.example/ws", cfg.WSURL)
		assert.Equal(t, 8, cfg.MaxReconnectAttempts)
		assert.Equal(t, 750*time.Millisecond, cfg.ReconnectDelay)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, LogFormatJSON, cfg.LogFormat)

		ch := cfg.ChannelConfig(nil)
		assert.Equal(t, cfg.WSURL, ch.Endpoint)
		assert.Equal(t, 8, ch.MaxReconnectAttempts)
		assert.Equal(t, 750*time.Millisecond, ch.ReconnectDelay)
	})

	t.Run("zero attempts disables reconnect", func(t *testing.T) {
		t.Setenv("CREDORA_WS_MAX_RECONNECT_ATTEMPTS", "0")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		nc := NewNotificationChannel(cfg.ChannelConfig(nil))
		assert.Equal(t, -1, nc.config.MaxReconnectAttempts)
	})

	t.Run("endpoint follows api url", func(t *testing.T) {
		t.Setenv("CREDORA_API_URL", "https://api.credora.example")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		nc := NewClient("", WithBaseURL(cfg.APIURL)).NotificationChannel(cfg.ChannelConfig(nil))
		assert.Equal(t, "wss://api.credora.example/ws", nc.config.Endpoint)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("CREDORA_WS_RECONNECT_DELAY", "soon")

		_, err := LoadConfig()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Setenv("CREDORA_LOG_FORMAT", "xml")

		_, err := LoadConfig()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.LevelInfo, LogFormatJSON, &buf)
		logger.Debug("hidden")
		logger.Info("notification channel connected", "attempt", 1)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "notification channel connected", rec["msg"])
		assert.Equal(t, float64(1), rec["attempt"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(slog.LevelWarn, LogFormatText, &buf).Warn("dropping payload")
		assert.Contains(t, buf.String(), "msg=\"dropping payload\"")
	})
}

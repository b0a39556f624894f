package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConfigValue(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, setConfigValue(cfg, "default.api_url", "https://api.credora.example/"))
	require.NoError(t, setConfigValue(cfg, "default.ws_url", "wss://api.credora.example/ws"))
	require.NoError(t, setConfigValue(cfg, "auth.token", "tok"))
	require.NoError(t, setConfigValue(cfg, "auth.email", "ada@example.com"))
	require.NoError(t, setConfigValue(cfg, "auth.user_id", "42"))
	require.NoError(t, setConfigValue(cfg, "auth.is_admin", "true"))

	assert.Equal(t, "https://api.credora.example", cfg.Default.APIURL)
	assert.Equal(t, "wss://api.credora.example/ws", cfg.Default.WSURL)
	assert.Equal(t, ConfigAuth{Token: "tok", Email: "ada@example.com", UserID: 42, IsAdmin: true}, cfg.Auth)

	for _, tc := range []struct {
		key, value string
	}{
		{"token", "x"},
		{"default.base_url", "x"},
		{"auth.user_id", "forty-two"},
		{"auth.is_admin", "maybe"},
		{"im.token", "x"},
	} {
		assert.Error(t, setConfigValue(cfg, tc.key, tc.value), tc.key)
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	cfg.Default.WSURL = "ws://127.0.0.1:9000/ws"
	cfg.Auth.Token = "secret-token-value"
	cfg.Auth.UserID = 7
	require.NoError(t, saveConfig(cfg))

	info, err := os.Stat(filepath.Join(home, ".credora", "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadSettingsFileOverridesEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CREDORA_API_URL", "http://env.example")
	t.Setenv("CREDORA_WS_URL", "ws://env.example/ws")

	require.NoError(t, saveConfig(&Config{Default: ConfigDefault{WSURL: "ws://file.example/ws"}}))

	s, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "http://env.example", s.env.APIURL)
	assert.Equal(t, "ws://file.example/ws", s.env.WSURL)

	_, err = s.client(true)
	assert.Error(t, err)
}

func TestLoadSettingsDerivesEndpointFromAPIURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &Config{}
	require.NoError(t, setConfigValue(cfg, "default.api_url", "https://api.credora.example"))
	require.NoError(t, saveConfig(cfg))

	s, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "https://api.credora.example", s.env.APIURL)
	assert.Equal(t, "wss://api.credora.example/ws", s.env.WSURL)
	assert.Equal(t, "wss://api.credora.example/ws", s.env.ChannelConfig(nil).Endpoint)
}

func TestFormatNotification(t *testing.T) {
	payload := map[string]any{
		"type":           "loan_status",
		"status":         "APPROVED",
		"application_id": float64(12),
		"meta":           map[string]any{"source": "ml"},
	}

	assert.Equal(t,
		`[loan_status] application_id=12 meta={"source":"ml"} status=APPROVED`,
		formatNotification(payload, false))
	assert.JSONEq(t,
		`{"type":"loan_status","status":"APPROVED","application_id":12,"meta":{"source":"ml"}}`,
		formatNotification(payload, true))
	assert.Equal(t, `"plain"`, formatNotification("plain", false))
	assert.Equal(t, `[1,2]`, formatNotification([]any{float64(1), float64(2)}, false))
	assert.Equal(t, `a=1`, formatNotification(map[string]any{"a": float64(1)}, false))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "eyJhbGci...wxyz", maskToken("eyJhbGciOiJIUzI1NiJ9.wxyz"))
	assert.Equal(t, "*****", maskToken("short"))
	assert.Equal(t, "", maskToken(""))
}

type refusingDialer struct{}

func (refusingDialer) Dial(context.Context, string) (credora.Conn, error) {
	return nil, errors.New("connection refused")
}

func TestWaitForGiveUp(t *testing.T) {
	newChannel := func(maxAttempts int) *credora.NotificationChannel {
		ch := credora.NewNotificationChannel(&credora.ChannelConfig{
			Endpoint:             "ws://credora.test/ws",
			MaxReconnectAttempts: maxAttempts,
			ReconnectDelay:       time.Millisecond,
			Dialer:               refusingDialer{},
			Logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		t.Cleanup(ch.Disconnect)
		return ch
	}

	t.Run("returns on cancel", func(t *testing.T) {
		ch := newChannel(-1)
		gaveUp := watchGiveUp(ch)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, waitForGiveUp(ctx, ch, gaveUp))
	})

	t.Run("reports exhausted reconnects", func(t *testing.T) {
		ch := newChannel(2)
		gaveUp := watchGiveUp(ch)
		ch.Connect("tok")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := waitForGiveUp(ctx, ch, gaveUp)
		assert.EqualError(t, err, "notification channel closed after 2 reconnect attempts")
		require.Eventually(t, func() bool { return ch.State() == credora.StateIdle }, time.Second, time.Millisecond)
	})

	t.Run("reconnect disabled", func(t *testing.T) {
		ch := newChannel(-1)
		gaveUp := watchGiveUp(ch)
		ch.Connect("tok")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.EqualError(t, waitForGiveUp(ctx, ch, gaveUp), "notification channel closed after 0 reconnect attempts")
	})
}

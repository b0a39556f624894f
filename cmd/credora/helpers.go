package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	credora "github.com/credora-ai/credora/sdk/golang"
)

// settings is the environment configuration with config-file overrides applied.
// The notification endpoint is derived from the API URL unless set explicitly.
type settings struct {
	env  *credora.Config
	file *Config
}

func loadSettings() (*settings, error) {
	env, err := credora.LoadConfig()
	if err != nil {
		return nil, err
	}
	file, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if file.Default.APIURL != "" {
		env.APIURL = file.Default.APIURL
	}
	if file.Default.WSURL != "" {
		env.WSURL = file.Default.WSURL
	}
	if env.WSURL == "" {
		env.WSURL = credora.NewClient("", credora.WithBaseURL(env.APIURL)).WSURL()
	}
	if logFormat != "" {
		env.LogFormat = logFormat
	}
	if verbose {
		env.LogLevel = slog.LevelDebug
	}
	return &settings{env: env, file: file}, nil
}

func (s *settings) logger() *slog.Logger {
	return credora.NewLogger(s.env.LogLevel, s.env.LogFormat, os.Stderr)
}

// client returns an API client. With requireToken it fails when no login is stored.
func (s *settings) client(requireToken bool) (*credora.Client, error) {
	if requireToken && s.file.Auth.Token == "" {
		return nil, fmt.Errorf("no token configured; run 'credora login <email>' or 'credora init <token>' first")
	}
	return credora.NewClient(s.file.Auth.Token, credora.WithBaseURL(s.env.APIURL)), nil
}

// channel returns an idle notification channel wired to the configured endpoint.
func (s *settings) channel(maxReconnectAttempts int) (*credora.NotificationChannel, error) {
	client, err := s.client(true)
	if err != nil {
		return nil, err
	}
	cfg := s.env.ChannelConfig(s.logger())
	if maxReconnectAttempts != 0 {
		cfg.MaxReconnectAttempts = maxReconnectAttempts
	}
	return client.NotificationChannel(cfg), nil
}

// formatNotification renders a decoded notification on one line. Objects are
// printed as sorted key=value pairs with "type" first.
func formatNotification(payload any, asJSON bool) string {
	obj, ok := payload.(map[string]any)
	if asJSON || !ok {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprint(payload)
		}
		return string(data)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k != "type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	if t, ok := obj["type"]; ok {
		fmt.Fprintf(&b, "[%v]", t)
	}
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		v := obj[k]
		switch v.(type) {
		case map[string]any, []any:
			data, _ := json.Marshal(v)
			fmt.Fprintf(&b, "%s=%s", k, data)
		default:
			fmt.Fprintf(&b, "%s=%v", k, v)
		}
	}
	return b.String()
}

// maskToken shows the first 8 and last 4 characters of a token.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + "..." + token[len(token)-4:]
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

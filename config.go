package credora

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ============================================================================
// Environment Configuration
// ============================================================================

// ErrInvalidConfig is returned when environment variables cannot be parsed.
var ErrInvalidConfig = errors.New("credora: invalid environment configuration")

// Config holds deployment settings read from the environment. An empty WSURL
// means the endpoint is derived from APIURL.
type Config struct {
	APIURL               string        `env:"CREDORA_API_URL" envDefault:"http://localhost:8000"`
	WSURL                string        `env:"CREDORA_WS_URL"`
	MaxReconnectAttempts int           `env:"CREDORA_WS_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectDelay       time.Duration `env:"CREDORA_WS_RECONNECT_DELAY" envDefault:"3s"`
	LogLevel             slog.Level    `env:"CREDORA_LOG_LEVEL" envDefault:"INFO"`
	LogFormat            string        `env:"CREDORA_LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads Config from the environment, loading a .env file from the
// working directory first when one exists.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		return nil, fmt.Errorf("%w: CREDORA_LOG_FORMAT must be %q or %q, got %q",
			ErrInvalidConfig, LogFormatText, LogFormatJSON, cfg.LogFormat)
	}
	return &cfg, nil
}

// ChannelConfig maps the environment settings onto a ChannelConfig.
// CREDORA_WS_MAX_RECONNECT_ATTEMPTS=0 disables automatic reconnection.
func (c *Config) ChannelConfig(logger *slog.Logger) *ChannelConfig {
	maxAttempts := c.MaxReconnectAttempts
	if maxAttempts == 0 {
		maxAttempts = -1
	}
	return &ChannelConfig{
		Endpoint:             c.WSURL,
		MaxReconnectAttempts: maxAttempts,
		ReconnectDelay:       c.ReconnectDelay,
		Logger:               logger,
	}
}

// ============================================================================
// Logging
// ============================================================================

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger builds a slog logger writing to w in the given format.
func NewLogger(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

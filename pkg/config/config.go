package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	envBotToken          = "BOT_TOKEN"
	envWebhookURL        = "WEBHOOK_URL"
	envWebhookPort       = "PORT"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
)

const (
	defaultWebhookPort        = 8080
	defaultWaitTimeoutSeconds = 25
)

// Config is the root runtime configuration, loaded from config.json when one
// exists and overridden by environment variables. The bot can run from the
// environment alone.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Webhook  WebhookConfig  `json:"webhook,omitempty"`
	Wait     WaitConfig     `json:"wait,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from,omitempty"`
}

// WebhookConfig selects webhook delivery when URL is set; the bot falls back
// to long polling otherwise.
type WebhookConfig struct {
	URL  string `json:"url,omitempty"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// WaitConfig bounds how long a handler waits for the sender's next message.
type WaitConfig struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// Timeout returns the configured caption wait duration, defaulting to 25s.
func (w WaitConfig) Timeout() time.Duration {
	seconds := w.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultWaitTimeoutSeconds
	}

	return time.Duration(seconds) * time.Second
}

// ListenPort returns the webhook listen port, defaulting to 8080.
func (w WebhookConfig) ListenPort() int {
	if w.Port <= 0 {
		return defaultWebhookPort
	}

	return w.Port
}

// LoadConfig resolves config.json if present, unmarshals it, and applies
// environment overrides on top.
func LoadConfig() (*Config, error) {
	var cfg Config

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envBotToken)); token != "" {
		cfg.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if url := strings.TrimSpace(os.Getenv(envWebhookURL)); url != "" {
		cfg.Webhook.URL = url
	}

	if rawPort := strings.TrimSpace(os.Getenv(envWebhookPort)); rawPort != "" {
		if port, err := strconv.Atoi(rawPort); err == nil && port > 0 {
			cfg.Webhook.Port = port
		}
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is CAPTIONBOT_CONFIG first, then cwd-local fallback paths. A
// missing fallback is not an error; an explicit CAPTIONBOT_CONFIG that does
// not point to a file is.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("CAPTIONBOT_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("CAPTIONBOT_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}

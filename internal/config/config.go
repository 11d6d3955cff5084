// Package config loads tilld configuration from a JSON file or TILL_*
// environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level tilld configuration.
type Config struct {
	Terminal TerminalConfig `json:"terminal"`
	Upstream UpstreamConfig `json:"upstream"`
	Sync     SyncConfig     `json:"sync"`
	Alerts   AlertsConfig   `json:"alerts"`
	API      APIConfig      `json:"api"`
}

// TerminalConfig identifies this register.
type TerminalConfig struct {
	ID        string `json:"id"`
	StoreName string `json:"store_name"`
	DataDir   string `json:"data_dir"`
}

// UpstreamConfig points at the central sale API.
type UpstreamConfig struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token,omitempty"`
	TimeoutSec     int    `json:"timeout_seconds,omitempty"`        // default 10
	ProbeIntervSec int    `json:"probe_interval_seconds,omitempty"` // default 15
}

// SyncConfig controls the safety-net drain schedule.
type SyncConfig struct {
	// Schedule is a cron expression or @every duration. Empty disables the
	// periodic drain; the online-event trigger still runs.
	Schedule string `json:"schedule,omitempty"`
}

// AlertsConfig holds optional operator alert channels.
type AlertsConfig struct {
	Slack    *SlackConfig    `json:"slack,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

// SlackConfig holds Slack alert settings.
type SlackConfig struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

// TelegramConfig holds Telegram alert settings.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// APIConfig holds local API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from TILL_* environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Terminal: TerminalConfig{
			ID:        getenv("TILL_TERMINAL_ID", "till-01"),
			StoreName: getenv("TILL_STORE_NAME", "Store"),
			DataDir:   getenv("TILL_DATA_DIR", "/data"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        os.Getenv("TILL_UPSTREAM_URL"),
			Token:          os.Getenv("TILL_UPSTREAM_TOKEN"),
			TimeoutSec:     getenvInt("TILL_UPSTREAM_TIMEOUT", 0),
			ProbeIntervSec: getenvInt("TILL_PROBE_INTERVAL", 0),
		},
		Sync: SyncConfig{
			Schedule: getenv("TILL_SYNC_SCHEDULE", "@every 5m"),
		},
		API: APIConfig{
			Host: getenv("TILL_API_HOST", "127.0.0.1"),
			Port: getenvInt("TILL_API_PORT", 8343),
			Key:  os.Getenv("TILL_API_KEY"),
		},
	}

	if token := os.Getenv("TILL_SLACK_TOKEN"); token != "" {
		cfg.Alerts.Slack = &SlackConfig{
			Token:   token,
			Channel: os.Getenv("TILL_SLACK_CHANNEL"),
		}
	}
	if token := os.Getenv("TILL_TELEGRAM_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TILL_TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: TILL_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Alerts.Telegram = &TelegramConfig{Token: token, ChatID: chatID}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = 10
	}
	if c.Upstream.ProbeIntervSec <= 0 {
		c.Upstream.ProbeIntervSec = 15
	}
	if c.API.Host == "" {
		c.API.Host = "127.0.0.1"
	}
	if c.API.Port == 0 {
		c.API.Port = 8343
	}
}

// Validate checks for required fields, collecting every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.Terminal.ID == "" {
		errs = append(errs, "terminal.id is required")
	}
	if c.Terminal.DataDir == "" {
		errs = append(errs, "terminal.data_dir is required")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	} else if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		errs = append(errs, "upstream.base_url must be an http(s) URL")
	}

	if c.Alerts.Slack != nil {
		if c.Alerts.Slack.Token == "" {
			errs = append(errs, "alerts.slack.token is required")
		}
		if c.Alerts.Slack.Channel == "" {
			errs = append(errs, "alerts.slack.channel is required")
		}
	}
	if c.Alerts.Telegram != nil {
		if c.Alerts.Telegram.Token == "" {
			errs = append(errs, "alerts.telegram.token is required")
		}
		if c.Alerts.Telegram.ChatID == 0 {
			errs = append(errs, "alerts.telegram.chat_id is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `{
		"terminal": {"id": "till-07", "store_name": "Corner Shop", "data_dir": "/tmp/till"},
		"upstream": {"base_url": "https://api.example.com", "token": "tok"},
		"sync": {"schedule": "@every 2m"},
		"api": {"port": 9000}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Terminal.ID != "till-07" {
		t.Errorf("unexpected terminal id %q", cfg.Terminal.ID)
	}
	if cfg.Upstream.TimeoutSec != 10 {
		t.Errorf("expected default timeout 10, got %d", cfg.Upstream.TimeoutSec)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.API.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{nope`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	path := writeConfig(t, `{
		"terminal": {"id": "", "data_dir": ""},
		"upstream": {"base_url": "ftp://wrong"},
		"alerts": {"slack": {"token": "", "channel": ""}}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"terminal.id", "terminal.data_dir", "base_url", "slack.token", "slack.channel"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in validation error, got: %v", want, err)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TILL_TERMINAL_ID", "till-99")
	t.Setenv("TILL_UPSTREAM_URL", "https://api.example.com")
	t.Setenv("TILL_API_PORT", "7000")
	t.Setenv("TILL_SLACK_TOKEN", "xoxb-1")
	t.Setenv("TILL_SLACK_CHANNEL", "C123")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Terminal.ID != "till-99" {
		t.Errorf("unexpected terminal id %q", cfg.Terminal.ID)
	}
	if cfg.API.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.API.Port)
	}
	if cfg.Alerts.Slack == nil || cfg.Alerts.Slack.Channel != "C123" {
		t.Errorf("expected slack alert config, got %+v", cfg.Alerts.Slack)
	}
	if cfg.Sync.Schedule != "@every 5m" {
		t.Errorf("expected default sync schedule, got %q", cfg.Sync.Schedule)
	}
}

func TestLoadFromEnvRequiresUpstream(t *testing.T) {
	t.Setenv("TILL_UPSTREAM_URL", "")
	if _, err := LoadFromEnv(); err == nil {
		t.Error("expected error without upstream url")
	}
}

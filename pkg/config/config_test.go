package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Search.URL != "http://elasticsearch:9200" {
		t.Errorf("unexpected default search URL: %s", cfg.Search.URL)
	}
	if cfg.Search.Index != "logstash-*" {
		t.Errorf("unexpected default index: %s", cfg.Search.Index)
	}
	if cfg.Broker.Addr() != "map_redis:6379" {
		t.Errorf("unexpected default broker address: %s", cfg.Broker.Addr())
	}
	if cfg.Broker.Channel != "attack-map-production" {
		t.Errorf("unexpected default channel: %s", cfg.Broker.Channel)
	}
	if cfg.Server.WebPort != 64299 {
		t.Errorf("unexpected default web port: %d", cfg.Server.WebPort)
	}
	if !cfg.UI.TextOutput {
		t.Error("text output should default to enabled")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Broker.Channel != "attack-map-production" {
		t.Errorf("expected defaults for a missing file, got channel %s", cfg.Broker.Channel)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
opensearch:
  url: https://search.internal:9200
  username: reader
valkey:
  host: broker.internal
server:
  web_port: 8080
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Search.URL != "https://search.internal:9200" {
		t.Errorf("expected overridden search URL, got %s", cfg.Search.URL)
	}
	if cfg.Search.Username != "reader" {
		t.Errorf("expected overridden username, got %s", cfg.Search.Username)
	}
	if cfg.Broker.Addr() != "broker.internal:6379" {
		t.Errorf("expected overridden host with default port, got %s", cfg.Broker.Addr())
	}
	if cfg.Server.WebPort != 8080 {
		t.Errorf("expected overridden web port, got %d", cfg.Server.WebPort)
	}
	// Untouched sections keep their defaults.
	if cfg.Search.Index != "logstash-*" {
		t.Errorf("expected default index to survive partial override, got %s", cfg.Search.Index)
	}
	if cfg.Broker.Channel != "attack-map-production" {
		t.Errorf("expected default channel to survive partial override, got %s", cfg.Broker.Channel)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("valkey: [not a mapping"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a malformed config file")
	}
}

func TestApplyEnv_TextOutput(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"enabled", "ENABLED", true},
		{"disabled", "DISABLED", false},
		{"lowercase enabled", "enabled", true},
		{"anything else disables", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEOIP_ATTACKMAP_TEXT", tt.value)
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.UI.TextOutput != tt.expected {
				t.Errorf("GEOIP_ATTACKMAP_TEXT=%s: expected %v, got %v", tt.value, tt.expected, cfg.UI.TextOutput)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chronicle.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, `
source:
  endpoint: "localhost:9029"
  network_name: "testnet"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.Name != "chronicle" {
		t.Errorf("got service name %q, want default", cfg.Service.Name)
	}
	if cfg.Service.HealthPort != 9687 {
		t.Errorf("got health port %d, want default 9687", cfg.Service.HealthPort)
	}
	if cfg.Store.Database != "chronicle" {
		t.Errorf("got database %q, want default", cfg.Store.Database)
	}
	if cfg.Store.BatchSize != 1000 {
		t.Errorf("got batch size %d, want default 1000", cfg.Store.BatchSize)
	}
	if cfg.Source.Endpoint != "localhost:9029" {
		t.Errorf("got endpoint %q, want passthrough value", cfg.Source.Endpoint)
	}
	if !cfg.AnalyticsEnabled("transfer_volume") {
		t.Error("expected default analytics.enabled to admit any name")
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeTemp(t, `
service:
  name: "chronicle-custom"
  health_port: 8080
store:
  mongo_uri: "mongodb://localhost:27017"
  batch_size: 250
analytics:
  enabled: ["address_activity", "transfer_volume"]
  sink_target: "prometheus"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.Name != "chronicle-custom" || cfg.Service.HealthPort != 8080 {
		t.Errorf("explicit service values not honored: %+v", cfg.Service)
	}
	if cfg.Store.BatchSize != 250 {
		t.Errorf("got batch size %d, want 250", cfg.Store.BatchSize)
	}
	if cfg.AnalyticsEnabled("unlock_condition_mix") {
		t.Error("expected unlisted analytic to be disabled")
	}
	if !cfg.AnalyticsEnabled("address_activity") {
		t.Error("expected listed analytic to be enabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

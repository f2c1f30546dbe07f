// Package config loads Chronicle's YAML configuration file, in the teacher's
// nested-struct-with-tags shape (stellar-postgres-ingester/go/config.go):
// unmarshal first, apply defaults after.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Service struct {
		Name       string `yaml:"name"`
		HealthPort int    `yaml:"health_port"`
	} `yaml:"service"`

	Source struct {
		Endpoint    string `yaml:"endpoint"`
		NetworkName string `yaml:"network_name"`
		StartSlot   uint32 `yaml:"start_slot"`
		EndSlot     uint32 `yaml:"end_slot"` // 0 = unbounded, tail indefinitely
	} `yaml:"source"`

	Store struct {
		MongoURI  string `yaml:"mongo_uri"`
		Database  string `yaml:"database"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"store"`

	Sync struct {
		StartMilestoneOverride uint32 `yaml:"start_milestone_override"`
	} `yaml:"sync"`

	Analytics struct {
		Enabled    []string `yaml:"enabled"`
		SinkTarget string   `yaml:"sink_target"` // "arrow" selects the Arrow sink; any other value, "" included, selects Prometheus
	} `yaml:"analytics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads path, unmarshals it as YAML, and fills in defaults for anything
// left zero-valued.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "chronicle"
	}
	if c.Service.HealthPort == 0 {
		c.Service.HealthPort = 9687
	}
	if c.Store.Database == "" {
		c.Store.Database = "chronicle"
	}
	if c.Store.BatchSize == 0 {
		c.Store.BatchSize = 1000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.Analytics.Enabled) == 0 {
		c.Analytics.Enabled = []string{"all"}
	}
}

// AnalyticsEnabled reports whether name is in the enabled list, or the list is
// the sentinel "all".
func (c *Config) AnalyticsEnabled(name string) bool {
	for _, e := range c.Analytics.Enabled {
		if e == "all" || e == name {
			return true
		}
	}
	return false
}

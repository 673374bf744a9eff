// CLAUDE:SUMMARY Configuration structs (compaction, sync) and YAML loader for the fold tracker.
package tracker

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tracker configuration.
type Config struct {
	// DBPath is the local SQLite database. An unopenable path degrades the
	// tracker to memory-only operation instead of failing.
	DBPath string `yaml:"db_path"`

	// Site is the storage namespace and the remote site key.
	Site string `yaml:"site"`

	Compaction CompactionConfig `yaml:"compaction"`
	Sync       SyncConfig       `yaml:"sync"`
}

// CompactionConfig overrides the eviction pacing. Zero values keep the
// foldstate defaults.
type CompactionConfig struct {
	GCThreshold  int `yaml:"gc_threshold"`
	RetainWindow int `yaml:"retain_window"`
	ValueLimit   int `yaml:"value_limit"`
}

// SyncConfig configures reconciliation with a relay. Sync is authorized
// only when both Endpoint and Token are set.
type SyncConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "repli.db"
	}
	if c.Site == "" {
		c.Site = "default"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

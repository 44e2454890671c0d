package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/opcua"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
)

// MinPollInterval is the floor on the poll cadence. Configured values below
// it are replaced by DefaultPollInterval with a warning rather than rejected.
const (
	MinPollInterval     = 100 * time.Millisecond
	DefaultPollInterval = 1000 * time.Millisecond
	DefaultFlushPeriod  = 30 * time.Second
)

type Config struct {
	Source   opcua.Config    `yaml:"source"`
	Polling  PollingConfig   `yaml:"polling"`
	Channels []ChannelConfig `yaml:"channels"`
	// StartNodeID is the run-start marker node; empty disables detection.
	StartNodeID string        `yaml:"start_node_id"`
	Storage     StorageConfig `yaml:"storage"`
	Flush       FlushConfig   `yaml:"flush"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Audit       AuditConfig   `yaml:"audit"`
	Logging     LoggingConfig `yaml:"logging"`

	// Warnings collects non-fatal substitutions made while loading.
	Warnings []string `yaml:"-"`
}

// ChannelConfig maps one monitored quantity onto its source nodes. Key is
// the column name in the store; Name is the display name used on export.
type ChannelConfig struct {
	Key            string `yaml:"key"`
	Name           string `yaml:"name"`
	NodeID         string `yaml:"node_id"`
	SetpointNodeID string `yaml:"setpoint_node_id"`
}

type PollingConfig struct {
	IntervalMS int `yaml:"interval_ms"`
}

type StorageConfig struct {
	// Dir holds one database file per calendar day.
	Dir string `yaml:"dir"`
	// Path, when set, overrides the per-day naming with a fixed file.
	Path string `yaml:"path"`
}

type FlushConfig struct {
	Period time.Duration `yaml:"period"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type AuditConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Polling.IntervalMS == 0 {
		c.Polling.IntervalMS = int(DefaultPollInterval / time.Millisecond)
	}
	if got := time.Duration(c.Polling.IntervalMS) * time.Millisecond; got < MinPollInterval {
		c.Warnings = append(c.Warnings, fmt.Sprintf(
			"polling.interval_ms %d is below the %v minimum; using default %v",
			c.Polling.IntervalMS, MinPollInterval, DefaultPollInterval))
		c.Polling.IntervalMS = int(DefaultPollInterval / time.Millisecond)
	}
	if c.Flush.Period <= 0 {
		c.Flush.Period = DefaultFlushPeriod
	}
	if c.Storage.Dir == "" && c.Storage.Path == "" {
		c.Storage.Dir = "./data"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "./data/gmp_audit_log.txt"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	c.Source.ApplyDefaults()
}

func (c *Config) validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel must be configured")
	}
	seen := make(map[string]struct{}, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Key == "" {
			return fmt.Errorf("channels[%d]: key is required", i)
		}
		if ch.NodeID == "" {
			return fmt.Errorf("channel %q: node_id is required", ch.Key)
		}
		if _, dup := seen[ch.Key]; dup {
			return fmt.Errorf("channel %q: duplicate key", ch.Key)
		}
		seen[ch.Key] = struct{}{}
	}
	return nil
}

// PollInterval is the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMS) * time.Millisecond
}

// ChannelKeys lists every store column the configured channels produce, in
// configuration order, with each setpoint key following its channel.
func (c *Config) ChannelKeys() []string {
	keys := make([]string, 0, len(c.Channels)*2)
	for _, ch := range c.Channels {
		keys = append(keys, ch.Key)
		if ch.SetpointNodeID != "" {
			keys = append(keys, domain.SetpointKey(ch.Key))
		}
	}
	return keys
}

// DisplayNames maps channel keys to display names for export. Setpoint keys
// are excluded; the exporter derives their " SP" suffix from the base name.
func (c *Config) DisplayNames() map[string]string {
	out := make(map[string]string, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Name != "" {
			out[ch.Key] = ch.Name
		}
	}
	return out
}

// StorePath resolves the database file for the given day.
func (s StorageConfig) StorePath(day time.Time) string {
	if s.Path != "" {
		return s.Path
	}
	return filepath.Join(s.Dir, fmt.Sprintf("bione_data_%s.sqlite", day.Format("2006-01-02")))
}

package bioreactor

import (
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/opcua"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SourceConfig holds the OPC UA connection details.
	SourceConfig = opcua.Config
	// ChannelConfig describes one monitored quantity and its node IDs.
	ChannelConfig = config.ChannelConfig
	// PollingConfig sets the acquisition cadence.
	PollingConfig = config.PollingConfig
	// StorageConfig locates the embedded database files.
	StorageConfig = config.StorageConfig
	// FlushConfig controls the write-behind flush period.
	FlushConfig = config.FlushConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// AuditConfig locates the append-only audit trail.
	AuditConfig = config.AuditConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

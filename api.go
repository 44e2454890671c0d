package bioreactor

import (
	base "github.com/Anindya-Karmaker/openua-bioreactor/pkg/bioreactor"
)

// Type aliases so consumers can import github.com/Anindya-Karmaker/openua-bioreactor directly.
type (
	Config            = base.Config
	SourceConfig      = base.SourceConfig
	ChannelConfig     = base.ChannelConfig
	PollingConfig     = base.PollingConfig
	StorageConfig     = base.StorageConfig
	FlushConfig       = base.FlushConfig
	MetricsConfig     = base.MetricsConfig
	AuditConfig       = base.AuditConfig
	Runtime           = base.Runtime
	RuntimeOption     = base.RuntimeOption
	Reading           = base.Reading
	Event             = base.Event
	Callbacks         = base.Callbacks
	ChannelSubscriber = base.ChannelSubscriber
	NodeSource        = base.NodeSource
	SampleStore       = base.SampleStore
	LiveSubscriber    = base.LiveSubscriber
	Observability     = base.Observability
	Field             = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSource(src NodeSource) RuntimeOption {
	return base.WithSource(src)
}

func WithStore(s SampleStore) RuntimeOption {
	return base.WithStore(s)
}

func WithSubscriber(sub LiveSubscriber) RuntimeOption {
	return base.WithSubscriber(sub)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Subscriber adapters.
func NewCallbackSubscriber(cb Callbacks) LiveSubscriber {
	return base.NewCallbackSubscriber(cb)
}

func NewChannelSubscriber(buffer int, obs Observability) *ChannelSubscriber {
	return base.NewChannelSubscriber(buffer, obs)
}

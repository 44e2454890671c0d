package bioreactor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/audit"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/observability"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/opcua"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/store"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/app/acquisition"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source        ports.NodeSource
	store         ports.SampleStore
	subscriber    ports.LiveSubscriber
	observability ports.Observability
}

// WithSource injects a custom node source (simulators, Modbus bridges, replay
// harnesses) in place of the OPC UA client.
func WithSource(src NodeSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.source = src
	}
}

// WithStore injects a custom sample store in place of the embedded database.
func WithStore(s SampleStore) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.store = s
	}
}

// WithSubscriber attaches a live subscriber (UI feed, alarm engine) to the
// acquisition loop.
func WithSubscriber(sub LiveSubscriber) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.subscriber = sub
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// Runtime wires the source → cache → store pipeline and exposes simple
// lifecycle hooks for embedding the logger inside any Go service.
type Runtime struct {
	cfg        *Config
	src        ports.NodeSource
	store      ports.SampleStore
	sub        ports.LiveSubscriber
	obs        ports.Observability
	audit      *audit.Logger
	loop       *acquisition.Loop
	metricsSrv *http.Server
}

// NewRuntime bootstraps the default adapters (OPC UA source, per-day SQLite
// store, slog + Prometheus observability, file audit trail). RuntimeOption
// values override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.New(observability.NewLogger(cfg.Logging.Level), nil)
	}

	src := overrides.source
	if src == nil {
		var err error
		src, err = opcua.NewSource(cfg.Source)
		if err != nil {
			return nil, err
		}
	}

	st := overrides.store
	if st == nil {
		var err error
		st, err = store.Open(cfg.Storage.StorePath(time.Now()), cfg.ChannelKeys())
		if err != nil {
			return nil, err
		}
	}

	var auditLog *audit.Logger
	if cfg.Audit.Path != "" {
		var err error
		auditLog, err = audit.Open(cfg.Audit.Path, func(err error) {
			obs.LogError("audit_write_failed", err)
		})
		if err != nil {
			return nil, err
		}
	}

	rt := &Runtime{
		cfg:   cfg,
		src:   src,
		store: st,
		obs:   obs,
		audit: auditLog,
	}
	rt.sub = combineSubscribers(rt.auditSubscriber(), overrides.subscriber)
	return rt, nil
}

// Run starts the metrics server and the acquisition loop, then blocks until
// the context is cancelled or the initial connect fails. On return the store
// and audit trail are closed, so a Runtime is good for one session.
func (r *Runtime) Run(ctx context.Context) error {
	if r.cfg.Metrics.Addr != "" {
		r.startMetrics()
	}
	if r.audit != nil {
		r.audit.Event("Logging session started for %s", r.cfg.Source.Endpoint)
	}

	cache := acquisition.NewCache()
	flusher := acquisition.NewFlusher(cache, r.store, r.cfg.Flush.Period, r.obs)
	r.loop = acquisition.NewLoop(acquisition.LoopConfig{
		Endpoint:    r.cfg.Source.Endpoint,
		Interval:    r.cfg.PollInterval(),
		Channels:    loopChannels(r.cfg),
		StartNodeID: r.cfg.StartNodeID,
	}, r.src, r.sub, cache, flusher, r.obs)

	runErr := r.loop.Run(ctx)

	if r.audit != nil {
		r.audit.Event("Logging session ended")
	}
	return errors.Join(runErr, r.shutdown())
}

// StartTime reports the reactor start marker observed in this session.
func (r *Runtime) StartTime() (float64, bool) {
	if r.loop == nil {
		return 0, false
	}
	return r.loop.StartTime()
}

// Store exposes the sample store so callers can run range queries or exports
// against the session's data.
func (r *Runtime) Store() SampleStore { return r.store }

func (r *Runtime) shutdown() error {
	var errs []error

	if r.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := r.store.Close(); err != nil {
		errs = append(errs, err)
	}

	if r.audit != nil {
		if err := r.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()
}

// auditSubscriber turns loop notifications into audit trail entries. Only
// state transitions are recorded; per-cycle readings stay out of the trail.
func (r *Runtime) auditSubscriber() ports.LiveSubscriber {
	if r.audit == nil {
		return nil
	}
	return NewCallbackSubscriber(Callbacks{
		OnStatus: func(status string) {
			r.audit.Event("%s", status)
		},
		OnReactorStarted: func(ts float64) {
			r.audit.Event("Reactor STARTED at %s", domain.Time(ts).UTC().Format(time.RFC3339))
		},
	})
}

func loopChannels(cfg *Config) []acquisition.Channel {
	out := make([]acquisition.Channel, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		out = append(out, acquisition.Channel{
			Key:            ch.Key,
			NodeID:         ch.NodeID,
			SetpointNodeID: ch.SetpointNodeID,
		})
	}
	return out
}

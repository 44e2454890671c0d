package observability

import (
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// Metric names published by the logger pipeline.
const (
	MetricSamplesPolled     = "bioreactor_samples_polled_total"
	MetricNodeReadFailures  = "bioreactor_node_read_failures_total"
	MetricSamplesPersisted  = "bioreactor_samples_persisted_total"
	MetricFlushFailures     = "bioreactor_flush_failures_total"
	MetricSubscriberDropped = "bioreactor_subscriber_dropped_total"
	MetricCacheLength       = "bioreactor_cache_length"
	MetricFlushDuration     = "bioreactor_flush_duration_seconds"
)

// Obs backs the ports.Observability interface with slog for structured
// logging and Prometheus for counters, gauges, and durations.
type Obs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// New registers the pipeline's metrics on reg (the default registerer when
// nil) and wires log output through logger.
func New(logger *slog.Logger, reg prometheus.Registerer) *Obs {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	polled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSamplesPolled,
		Help: "Total readings produced by the acquisition loop.",
	})
	readFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricNodeReadFailures,
		Help: "Node reads that failed and degraded to a null value.",
	})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSamplesPersisted,
		Help: "Readings durably written to the sample store.",
	})
	flushFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFlushFailures,
		Help: "Flush attempts that failed and were requeued.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSubscriberDropped,
		Help: "Live updates dropped because the subscriber lagged.",
	})
	cacheLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricCacheLength,
		Help: "Readings currently buffered in the write-behind cache.",
	})
	flushDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricFlushDuration,
		Help:    "Wall time of one cache flush into the store.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(polled, readFailures, persisted, flushFailures, dropped, cacheLen, flushDur)

	return &Obs{
		log: logger,
		counters: map[string]prometheus.Counter{
			MetricSamplesPolled:     polled,
			MetricNodeReadFailures:  readFailures,
			MetricSamplesPersisted:  persisted,
			MetricFlushFailures:     flushFailures,
			MetricSubscriberDropped: dropped,
		},
		gauges: map[string]prometheus.Gauge{
			MetricCacheLength: cacheLen,
		},
		histos: map[string]prometheus.Observer{
			MetricFlushDuration: flushDur,
		},
	}
}

// NewLogger builds the slog logger the runtime hands to New. Level is one of
// debug, info, warn, error; anything else falls back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func (o *Obs) LogInfo(msg string, fields ...ports.Field) {
	o.log.Info(msg, attrs(fields)...)
}

func (o *Obs) LogWarn(msg string, fields ...ports.Field) {
	o.log.Warn(msg, attrs(fields)...)
}

func (o *Obs) LogError(msg string, err error, fields ...ports.Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.Any("error", err))
	}
	o.log.Error(msg, args...)
}

func (o *Obs) IncCounter(name string, v float64) {
	if c, ok := o.counters[name]; ok {
		c.Add(v)
	}
}

func (o *Obs) SetGauge(name string, v float64) {
	if g, ok := o.gauges[name]; ok {
		g.Set(v)
	}
}

func (o *Obs) ObserveDuration(name string, seconds float64) {
	if h, ok := o.histos[name]; ok {
		h.Observe(seconds)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*Obs)(nil)

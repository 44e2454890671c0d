package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New(nil, reg)

	obs.IncCounter(MetricSamplesPolled, 5)
	if got := testutil.ToFloat64(obs.counters[MetricSamplesPolled]); got != 5 {
		t.Fatalf("expected polled counter 5, got %f", got)
	}

	obs.IncCounter(MetricNodeReadFailures, 2)
	if got := testutil.ToFloat64(obs.counters[MetricNodeReadFailures]); got != 2 {
		t.Fatalf("expected read failure counter 2, got %f", got)
	}

	obs.SetGauge(MetricCacheLength, 42)
	if got := testutil.ToFloat64(obs.gauges[MetricCacheLength]); got != 42 {
		t.Fatalf("expected cache gauge 42, got %f", got)
	}

	obs.ObserveDuration(MetricFlushDuration, 0.5)
	hCollector := obs.histos[MetricFlushDuration].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected flush histogram to record 1 sample, got %d", samples)
	}
}

func TestObsUnknownNamesAreNoOps(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New(nil, reg)

	obs.IncCounter("no_such_counter", 1)
	obs.SetGauge("no_such_gauge", 1)
	obs.ObserveDuration("no_such_histogram", 1)
}

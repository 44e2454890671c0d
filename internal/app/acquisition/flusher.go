package acquisition

import (
	"time"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/observability"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// Flusher drains the write-behind cache into the sample store on a fixed
// wall-clock period, independent of the poll cadence. A failed insert pushes
// the snapshot back into the cache; the store's insert-or-ignore keyed on
// timestamp makes the eventual retry safe.
type Flusher struct {
	cache  *Cache
	store  ports.SampleStore
	period time.Duration
	obs    ports.Observability

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewFlusher(cache *Cache, store ports.SampleStore, period time.Duration, obs ports.Observability) *Flusher {
	if period <= 0 {
		period = 30 * time.Second
	}
	return &Flusher{
		cache:  cache,
		store:  store,
		period: period,
		obs:    obs,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the periodic flush goroutine.
func (f *Flusher) Start() {
	go func() {
		defer close(f.doneCh)
		ticker := time.NewTicker(f.period)
		defer ticker.Stop()
		for {
			select {
			case <-f.stopCh:
				return
			case <-ticker.C:
				f.flushOnce()
			}
		}
	}()
}

// Stop ends the periodic flushing and performs one final synchronous drain.
// Call only after the acquisition loop has stopped appending; this is what
// guarantees zero data loss on a clean stop.
func (f *Flusher) Stop() {
	close(f.stopCh)
	<-f.doneCh
	f.flushOnce()
}

func (f *Flusher) flushOnce() {
	snapshot := f.cache.TakeAll()
	if len(snapshot) == 0 {
		return
	}

	start := time.Now()
	if err := f.store.InsertBulk(snapshot); err != nil {
		f.obs.LogError("flush_failed", err, ports.Field{Key: "records", Value: len(snapshot)})
		f.obs.IncCounter(observability.MetricFlushFailures, 1)
		f.cache.Requeue(snapshot)
		return
	}

	f.obs.ObserveDuration(observability.MetricFlushDuration, time.Since(start).Seconds())
	f.obs.IncCounter(observability.MetricSamplesPersisted, float64(len(snapshot)))
	f.obs.SetGauge(observability.MetricCacheLength, float64(f.cache.Len()))
	f.obs.LogInfo("flushed_records", ports.Field{Key: "records", Value: len(snapshot)})
}

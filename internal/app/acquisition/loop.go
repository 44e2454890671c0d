package acquisition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/observability"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// startedSentinel is the node value that marks the reactor run as started.
const startedSentinel = 1.0

// Channel is one monitored quantity and its source nodes.
type Channel struct {
	Key            string
	NodeID         string
	SetpointNodeID string
}

// LoopConfig drives one acquisition session.
type LoopConfig struct {
	// Endpoint appears in subscriber status strings only; the NodeSource owns
	// the actual connection target.
	Endpoint    string
	Interval    time.Duration
	Channels    []Channel
	StartNodeID string
}

// Loop polls every configured channel at a fixed cadence, pushes each
// reading to the live subscriber, and appends it to the write-behind cache.
// Connect failures are terminal for the session; individual node read
// failures degrade only that channel for that cycle.
type Loop struct {
	cfg     LoopConfig
	src     ports.NodeSource
	sub     ports.LiveSubscriber
	cache   *Cache
	flusher *Flusher
	obs     ports.Observability

	now func() time.Time

	mu      sync.Mutex
	startTS float64
	started bool
}

func NewLoop(cfg LoopConfig, src ports.NodeSource, sub ports.LiveSubscriber, cache *Cache, flusher *Flusher, obs ports.Observability) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Loop{
		cfg:     cfg,
		src:     src,
		sub:     sub,
		cache:   cache,
		flusher: flusher,
		obs:     obs,
		now:     time.Now,
	}
}

// Run connects once and polls until ctx is cancelled. There is no retry on a
// failed connect; restarting the loop is the operator's decision. On
// shutdown the order is strict: stop polling, disconnect, final flush,
// Disconnected status.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.src.Connect(ctx); err != nil {
		l.sub.OnStatus(fmt.Sprintf("Connection Failed: %v", err))
		l.obs.LogError("source_connect_failed", err, ports.Field{Key: "endpoint", Value: l.cfg.Endpoint})
		return fmt.Errorf("connect %s: %w", l.cfg.Endpoint, err)
	}

	l.sub.OnStatus(fmt.Sprintf("Connected to %s", l.cfg.Endpoint))
	l.obs.LogInfo("source_connected", ports.Field{Key: "endpoint", Value: l.cfg.Endpoint})

	l.flusher.Start()
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		l.pollOnce(ctx)
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil
		case <-ticker.C:
		}
	}
}

// StartTime reports the reactor start marker for this session, if set.
func (l *Loop) StartTime() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startTS, l.started
}

func (l *Loop) pollOnce(ctx context.Context) {
	ts := domain.Seconds(l.now())
	r := domain.Reading{
		Timestamp: ts,
		Values:    make(map[string]float64, len(l.cfg.Channels)*2),
	}

	for _, ch := range l.cfg.Channels {
		l.readInto(ctx, &r, ch.Key, ch.NodeID)
		if ch.SetpointNodeID != "" {
			l.readInto(ctx, &r, domain.SetpointKey(ch.Key), ch.SetpointNodeID)
		}
	}

	if l.cfg.StartNodeID != "" && !l.markerSet() {
		if v, err := l.src.ReadNode(ctx, l.cfg.StartNodeID); err == nil && v == startedSentinel {
			l.setMarker(ts)
			r.Status = domain.StatusStarted
			l.sub.OnReactorStarted(ts)
			l.obs.LogInfo("reactor_started", ports.Field{Key: "timestamp", Value: ts})
		}
	}

	l.sub.OnReading(r)
	l.cache.Append(r)
	l.obs.IncCounter(observability.MetricSamplesPolled, 1)
	l.obs.SetGauge(observability.MetricCacheLength, float64(l.cache.Len()))
}

// readInto records one node value, degrading to an absent key on failure so
// a single bad tag never poisons the whole reading.
func (l *Loop) readInto(ctx context.Context, r *domain.Reading, key, nodeID string) {
	v, err := l.src.ReadNode(ctx, nodeID)
	if err != nil {
		l.obs.IncCounter(observability.MetricNodeReadFailures, 1)
		l.obs.LogWarn("node_read_failed",
			ports.Field{Key: "channel", Value: key},
			ports.Field{Key: "node_id", Value: nodeID},
			ports.Field{Key: "error", Value: err.Error()})
		return
	}
	r.Values[key] = v
}

func (l *Loop) markerSet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

func (l *Loop) setMarker(ts float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		l.startTS = ts
		l.started = true
	}
}

func (l *Loop) shutdown() {
	// Disconnect is best-effort; a failed close must not block the final
	// flush.
	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.src.Disconnect(disconnectCtx); err != nil {
		l.obs.LogError("source_disconnect_failed", err)
	}

	l.flusher.Stop()
	l.sub.OnStatus("Disconnected")
	l.obs.LogInfo("source_disconnected")
}

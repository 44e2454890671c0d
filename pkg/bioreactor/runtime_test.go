package bioreactor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
)

func TestNewRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	srcStub := &stubSource{}
	storeStub := &stubStore{}
	obsStub := &countingObs{}

	rt, err := NewRuntime(
		cfg,
		WithSource(srcStub),
		WithStore(storeStub),
		WithObservability(obsStub),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if rt.src != srcStub {
		t.Fatalf("expected custom source to be used")
	}
	if rt.store != storeStub {
		t.Fatalf("expected custom store to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
}

func TestNewRuntimeRequiresConfig(t *testing.T) {
	if _, err := NewRuntime(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestRuntimeSessionPersistsAndAudits(t *testing.T) {
	cfg := testConfig(t)

	srcStub := &stubSource{values: map[string]float64{"ns=1;s=ph": 7.0}}
	storeStub := &stubStore{}
	events := NewChannelSubscriber(64, nil)

	rt, err := NewRuntime(cfg,
		WithSource(srcStub),
		WithStore(storeStub),
		WithSubscriber(events),
		WithObservability(&countingObs{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	// One reading is enough to prove the path end to end.
	select {
	case <-events.Readings():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reading")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}

	if storeStub.rows == 0 {
		t.Fatalf("expected the final flush to persist readings")
	}
	if !storeStub.closed {
		t.Fatalf("expected the store to be closed on shutdown")
	}

	trail, err := os.ReadFile(cfg.Audit.Path)
	if err != nil {
		t.Fatalf("read audit trail: %v", err)
	}
	text := string(trail)
	for _, want := range []string{
		"Logging session started for opc.tcp://test:4840",
		"Connected to opc.tcp://test:4840",
		"Disconnected",
		"Logging session ended",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("audit trail missing %q:\n%s", want, text)
		}
	}
}

func TestRuntimeConnectFailureSurfaces(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Path = ""

	rt, err := NewRuntime(cfg,
		WithSource(&stubSource{connectErr: context.DeadlineExceeded}),
		WithStore(&stubStore{}),
		WithObservability(&countingObs{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if err := rt.Run(context.Background()); err == nil {
		t.Fatalf("expected connect failure to surface from Run")
	}
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &Config{
		Source: SourceConfig{Endpoint: "opc.tcp://test:4840"},
		Channels: []ChannelConfig{
			{Key: "ph", Name: "pH", NodeID: "ns=1;s=ph"},
		},
		Polling: PollingConfig{IntervalMS: 5},
		Flush:   FlushConfig{Period: 10 * time.Millisecond},
		Storage: StorageConfig{Dir: dir},
		Audit:   AuditConfig{Path: filepath.Join(dir, "gmp_audit_log.txt")},
	}
	return cfg
}

type stubSource struct {
	connectErr error
	values     map[string]float64
}

func (s *stubSource) Connect(ctx context.Context) error { return s.connectErr }

func (s *stubSource) ReadNode(ctx context.Context, nodeID string) (float64, error) {
	return s.values[nodeID], nil
}

func (s *stubSource) Disconnect(ctx context.Context) error { return nil }

type stubStore struct {
	rows   int
	closed bool
}

func (s *stubStore) InsertBulk(records []domain.Reading) error {
	s.rows += len(records)
	return nil
}

func (s *stubStore) QueryRange(startTS, endTS float64) ([]domain.Reading, error) { return nil, nil }
func (s *stubStore) QueryAll() ([]domain.Reading, error)                         { return nil, nil }
func (s *stubStore) FirstStarted() (float64, bool, error)                        { return 0, false, nil }
func (s *stubStore) Columns() []string                                           { return []string{"ph"} }
func (s *stubStore) Close() error {
	s.closed = true
	return nil
}

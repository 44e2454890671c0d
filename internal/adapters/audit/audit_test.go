package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEventAppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.txt")
	l, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Event("INFO: client started")
	l.Event("INFO: flushed %d records", 30)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := fixed.Format(time.RFC3339) + " - INFO: client started"
	if lines[0] != want {
		t.Fatalf("line 1 = %q, want %q", lines[0], want)
	}
	if !strings.HasSuffix(lines[1], "INFO: flushed 30 records") {
		t.Fatalf("line 2 = %q", lines[1])
	}
}

func TestOpenAppendsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.txt")

	for i := 0; i < 2; i++ {
		l, err := Open(path, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		l.Event("session %d", i)
		if err := l.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.Count(string(raw), "session "); got != 2 {
		t.Fatalf("expected 2 appended sessions, got %d", got)
	}
}

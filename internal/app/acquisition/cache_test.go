package acquisition

import (
	"sync"
	"testing"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
)

func TestCacheAppendTakeAll(t *testing.T) {
	c := NewCache()

	c.Append(domain.Reading{Timestamp: 1})
	c.Append(domain.Reading{Timestamp: 2})

	snap := c.TakeAll()
	if len(snap) != 2 || snap[0].Timestamp != 1 || snap[1].Timestamp != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if c.Len() != 0 {
		t.Fatalf("cache should be empty after TakeAll, got %d", c.Len())
	}
	if again := c.TakeAll(); len(again) != 0 {
		t.Fatalf("second TakeAll should be empty, got %d", len(again))
	}
}

func TestCacheRequeuePreservesOrder(t *testing.T) {
	c := NewCache()

	snap := []domain.Reading{{Timestamp: 1}, {Timestamp: 2}}
	c.Append(domain.Reading{Timestamp: 3})
	c.Requeue(snap)

	got := c.TakeAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	for i, want := range []float64{1, 2, 3} {
		if got[i].Timestamp != want {
			t.Fatalf("position %d: timestamp %v, want %v", i, got[i].Timestamp, want)
		}
	}
}

// Every reading appended concurrently with swaps must land in exactly one
// snapshot: none lost, none duplicated.
func TestCacheSwapAtomicity(t *testing.T) {
	const total = 10_000
	c := NewCache()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			c.Append(domain.Reading{Timestamp: float64(i)})
		}
	}()

	seen := make(map[float64]int, total)
	collect := func(snap []domain.Reading) {
		for _, r := range snap {
			seen[r.Timestamp]++
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		collect(c.TakeAll())
		select {
		case <-done:
			collect(c.TakeAll())
			if len(seen) != total {
				t.Fatalf("expected %d distinct readings, got %d", total, len(seen))
			}
			for ts, n := range seen {
				if n != 1 {
					t.Fatalf("reading %v observed %d times", ts, n)
				}
			}
			return
		default:
		}
	}
}

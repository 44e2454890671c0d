package bioreactor

import (
	"time"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// Reading mirrors the internal reading record but is safe for external
// callers: the values map is always a private copy.
type Reading struct {
	// Timestamp is seconds since the Unix epoch, fractional part preserved.
	Timestamp float64
	// Values maps channel key to the polled value. A key absent from the map
	// means that node failed to read on this cycle.
	Values map[string]float64
	// Status is empty except on the cycle where the reactor start marker
	// fires.
	Status string
}

// Time converts the reading's epoch-seconds timestamp to a time.Time.
func (r Reading) Time() time.Time {
	return domain.Time(r.Timestamp)
}

// Event is a non-sample notification from the acquisition loop: a status
// transition, or the reactor start marker firing.
type Event struct {
	// Status holds the transition text ("Connected to ...", "Disconnected",
	// "Connection Failed: ...") when the event is a status change.
	Status string
	// Started is true when the run-start node fired; StartTS then carries the
	// epoch-seconds timestamp of the cycle that observed it.
	Started bool
	StartTS float64
}

// NodeSource reads individual values from an OPC UA server (or a simulator).
type NodeSource = ports.NodeSource

// SampleStore persists reading batches and serves range queries.
type SampleStore = ports.SampleStore

// LiveSubscriber receives push notifications from the acquisition loop.
type LiveSubscriber = ports.LiveSubscriber

// Observability emits structured logs and metrics for the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

func readingFromDomain(r domain.Reading) Reading {
	return Reading{
		Timestamp: r.Timestamp,
		Values:    copyValues(r.Values),
		Status:    r.Status,
	}
}

func copyValues(src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

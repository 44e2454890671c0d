package bioreactor

import (
	"testing"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
)

func TestNewCallbackSubscriber(t *testing.T) {
	var (
		readings []Reading
		statuses []string
		starts   []float64
	)
	sub := NewCallbackSubscriber(Callbacks{
		OnReading:        func(r Reading) { readings = append(readings, r) },
		OnStatus:         func(s string) { statuses = append(statuses, s) },
		OnReactorStarted: func(ts float64) { starts = append(starts, ts) },
	})

	src := domain.Reading{Timestamp: 100, Values: map[string]float64{"ph": 7.0}}
	sub.OnReading(src)
	sub.OnStatus("Connected to opc.tcp://test:4840")
	sub.OnReactorStarted(100)

	if len(readings) != 1 || readings[0].Timestamp != 100 {
		t.Fatalf("unexpected readings: %+v", readings)
	}
	if readings[0].Values["ph"] != 7.0 {
		t.Fatalf("expected value to be copied, got %v", readings[0].Values)
	}
	// The exported reading must hold its own map, not alias the loop's.
	src.Values["ph"] = 9.9
	if readings[0].Values["ph"] != 7.0 {
		t.Fatalf("reading values alias the internal map")
	}
	if len(statuses) != 1 || len(starts) != 1 || starts[0] != 100 {
		t.Fatalf("statuses=%v starts=%v", statuses, starts)
	}
}

func TestNewCallbackSubscriberNilHandlers(t *testing.T) {
	sub := NewCallbackSubscriber(Callbacks{})
	sub.OnReading(domain.Reading{Timestamp: 1})
	sub.OnStatus("Disconnected")
	sub.OnReactorStarted(1)
}

func TestChannelSubscriberDelivers(t *testing.T) {
	sub := NewChannelSubscriber(4, nil)
	defer sub.Close()

	sub.OnReading(domain.Reading{Timestamp: 10, Values: map[string]float64{"do": 55}})
	sub.OnStatus("Connected to opc.tcp://test:4840")
	sub.OnReactorStarted(10)

	r := <-sub.Readings()
	if r.Timestamp != 10 || r.Values["do"] != 55 {
		t.Fatalf("unexpected reading: %+v", r)
	}

	e := <-sub.Events()
	if e.Status != "Connected to opc.tcp://test:4840" || e.Started {
		t.Fatalf("unexpected first event: %+v", e)
	}
	e = <-sub.Events()
	if !e.Started || e.StartTS != 10 {
		t.Fatalf("unexpected start event: %+v", e)
	}
}

func TestChannelSubscriberDropsNewestWhenFull(t *testing.T) {
	counter := &countingObs{}
	sub := NewChannelSubscriber(1, counter)
	defer sub.Close()

	sub.OnReading(domain.Reading{Timestamp: 1})
	sub.OnReading(domain.Reading{Timestamp: 2})
	sub.OnReading(domain.Reading{Timestamp: 3})

	r := <-sub.Readings()
	if r.Timestamp != 1 {
		t.Fatalf("expected the oldest reading to survive, got %v", r.Timestamp)
	}
	if counter.dropped != 2 {
		t.Fatalf("expected 2 drops counted, got %v", counter.dropped)
	}
}

func TestChannelSubscriberCloseIsIdempotent(t *testing.T) {
	sub := NewChannelSubscriber(1, nil)
	sub.Close()
	sub.Close()

	// Notifications after Close are discarded, not a panic.
	sub.OnReading(domain.Reading{Timestamp: 1})
	sub.OnStatus("Disconnected")
	sub.OnReactorStarted(1)

	if _, ok := <-sub.Readings(); ok {
		t.Fatalf("readings channel should be closed and empty")
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("events channel should be closed and empty")
	}
}

func TestCombineSubscribersFansOut(t *testing.T) {
	var first, second []string
	a := NewCallbackSubscriber(Callbacks{OnStatus: func(s string) { first = append(first, s) }})
	b := NewCallbackSubscriber(Callbacks{OnStatus: func(s string) { second = append(second, s) }})

	combined := combineSubscribers(a, nil, b)
	combined.OnStatus("Disconnected")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("fan-out missed a member: first=%v second=%v", first, second)
	}
}

type countingObs struct {
	dropped float64
}

func (c *countingObs) LogInfo(string, ...Field)         {}
func (c *countingObs) LogWarn(string, ...Field)         {}
func (c *countingObs) LogError(string, error, ...Field) {}
func (c *countingObs) IncCounter(name string, v float64) {
	c.dropped += v
}
func (c *countingObs) SetGauge(string, float64)        {}
func (c *countingObs) ObserveDuration(string, float64) {}

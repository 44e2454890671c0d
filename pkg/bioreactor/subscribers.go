package bioreactor

import (
	"sync"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/adapters/observability"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

// Callbacks bundles the handlers for a callback subscriber. Any nil handler
// is simply skipped.
type Callbacks struct {
	OnReading        func(Reading)
	OnStatus         func(status string)
	OnReactorStarted func(startTS float64)
}

// NewCallbackSubscriber adapts plain functions into a full LiveSubscriber so
// callers can observe the loop without defining structs.
func NewCallbackSubscriber(cb Callbacks) LiveSubscriber {
	return &callbackSubscriber{cb: cb}
}

type callbackSubscriber struct {
	cb Callbacks
}

var _ ports.LiveSubscriber = (*callbackSubscriber)(nil)

func (s *callbackSubscriber) OnReading(r domain.Reading) {
	if s.cb.OnReading != nil {
		s.cb.OnReading(readingFromDomain(r))
	}
}

func (s *callbackSubscriber) OnStatus(status string) {
	if s.cb.OnStatus != nil {
		s.cb.OnStatus(status)
	}
}

func (s *callbackSubscriber) OnReactorStarted(ts float64) {
	if s.cb.OnReactorStarted != nil {
		s.cb.OnReactorStarted(ts)
	}
}

// ChannelSubscriber exposes loop notifications via bounded channels. The
// poll goroutine never blocks on a slow consumer: when a channel is full the
// newest notification is dropped and counted.
type ChannelSubscriber struct {
	obs Observability

	mu       sync.Mutex
	closed   bool
	readings chan Reading
	events   chan Event
}

var _ ports.LiveSubscriber = (*ChannelSubscriber)(nil)

// NewChannelSubscriber builds a subscriber whose channels each buffer up to
// buffer notifications. obs may be nil; drops are then uncounted.
func NewChannelSubscriber(buffer int, obs Observability) *ChannelSubscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSubscriber{
		obs:      obs,
		readings: make(chan Reading, buffer),
		events:   make(chan Event, buffer),
	}
}

// Readings streams per-cycle readings. The channel is closed by Close.
func (s *ChannelSubscriber) Readings() <-chan Reading { return s.readings }

// Events streams status transitions and the reactor start marker. The
// channel is closed by Close.
func (s *ChannelSubscriber) Events() <-chan Event { return s.events }

// Close closes both channels. Notifications arriving after Close are
// discarded; calling Close twice is safe.
func (s *ChannelSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.readings)
	close(s.events)
}

func (s *ChannelSubscriber) OnReading(r domain.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.readings <- readingFromDomain(r):
	default:
		s.drop()
	}
}

func (s *ChannelSubscriber) OnStatus(status string) {
	s.sendEvent(Event{Status: status})
}

func (s *ChannelSubscriber) OnReactorStarted(ts float64) {
	s.sendEvent(Event{Started: true, StartTS: ts})
}

func (s *ChannelSubscriber) sendEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
		s.drop()
	}
}

func (s *ChannelSubscriber) drop() {
	if s.obs != nil {
		s.obs.IncCounter(observability.MetricSubscriberDropped, 1)
	}
}

// multiSubscriber fans every notification out to each member in order.
type multiSubscriber []ports.LiveSubscriber

// combineSubscribers flattens the non-nil subscribers into one. It returns a
// no-op subscriber when none remain so the loop never needs a nil check.
func combineSubscribers(subs ...ports.LiveSubscriber) ports.LiveSubscriber {
	var active multiSubscriber
	for _, s := range subs {
		if s != nil {
			active = append(active, s)
		}
	}
	return active
}

func (m multiSubscriber) OnReading(r domain.Reading) {
	for _, s := range m {
		s.OnReading(r)
	}
}

func (m multiSubscriber) OnStatus(status string) {
	for _, s := range m {
		s.OnStatus(status)
	}
}

func (m multiSubscriber) OnReactorStarted(ts float64) {
	for _, s := range m {
		s.OnReactorStarted(ts)
	}
}

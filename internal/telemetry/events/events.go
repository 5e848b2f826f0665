// Package events is the engine's operational diagnostic bus: structural
// notifications about the run itself (configuration changes, resource-graph
// freeze, run start/stop, health transitions). It is distinct from the
// simulation's own EventManager (internal/event), which multicasts
// lifecycle events like time_step to components.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"simulacra/internal/telemetry/metrics"
)

const (
	CategoryConfig    = "config_change"
	CategoryResources = "resources"
	CategoryRun       = "run"
	CategoryHealth    = "health"
	CategoryError     = "error"
)

// Event is the structured envelope published on the bus.
type Event struct {
	Time     time.Time
	Category string
	Type     string
	Severity string
	Fields   map[string]interface{}
}

// Subscription is a handle representing one consumer of events.
type Subscription interface {
	C() <-chan Event
	Close() error
	ID() int64
}

// BusStats reports runtime counters for observability.
type BusStats struct {
	Subscribers int64
	Published   uint64
	Dropped     uint64
}

// Bus is a bounded, non-blocking publish/subscribe event bus.
type Bus interface {
	Publish(ev Event) error
	Subscribe(buffer int) (Subscription, error)
	Unsubscribe(sub Subscription) error
	Stats() BusStats
}

// NewBus creates a bus reporting through the given metrics provider (may be
// the noop provider).
func NewBus(provider metrics.Provider) Bus {
	b := &eventBus{subs: make(map[int64]*subscriber), provider: provider}
	b.initMetrics()
	return b
}

type subscriber struct {
	id      int64
	ch      chan Event
	dropped atomic.Uint64
}

func (s *subscriber) C() <-chan Event { return s.ch }
func (s *subscriber) ID() int64       { return s.id }

type eventBus struct {
	mu        sync.RWMutex
	subs      map[int64]*subscriber
	nextID    int64
	published atomic.Uint64
	dropped   atomic.Uint64

	provider   metrics.Provider
	mPublished metrics.Counter
	mDropped   metrics.Counter
}

func (b *eventBus) initMetrics() {
	if b.provider == nil {
		return
	}
	b.mPublished = b.provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
		Namespace: "simulacra", Subsystem: "events", Name: "published_total", Help: "Total operational events published",
	}})
	b.mDropped = b.provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
		Namespace: "simulacra", Subsystem: "events", Name: "dropped_total", Help: "Total operational events dropped due to backpressure",
	}})
}

func (b *eventBus) Publish(ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	if b.mPublished != nil {
		b.mPublished.Inc(1)
	}
	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			b.dropped.Add(1)
			if b.mDropped != nil {
				b.mDropped.Inc(1)
			}
		}
	}
	return nil
}

func (b *eventBus) Subscribe(buffer int) (Subscription, error) {
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &subscriber{id: b.nextID, ch: make(chan Event, buffer)}
	b.subs[s.id] = s
	return s, nil
}

func (b *eventBus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[sub.ID()]; ok {
		close(s.ch)
		delete(b.subs, sub.ID())
	}
	return nil
}

func (s *subscriber) Close() error { return nil }

func (b *eventBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BusStats{
		Subscribers: int64(len(b.subs)),
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
	}
}

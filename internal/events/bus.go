// Package events provides in-process publish/subscribe fanout of domain events.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kind enumerates the events the system publishes.
type Kind string

const (
	WorkorderCreated Kind = "WORKORDER_CREATED"
)

// Event is a single published notification. It is never persisted or replayed.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Payload     any       `json:"payload"`
	PublishedAt time.Time `json:"published_at"`
}

// ErrClosed is returned when subscribing to a bus that has shut down.
var ErrClosed = errors.New("event bus closed")

// Recorder receives fanout counters. Implementations must be safe for concurrent use.
type Recorder interface {
	EventPublished(kind string, subscribers int)
	EventDropped(kind string)
	SubscriberAdded(kind string)
	SubscriberRemoved(kind string)
}

type Config struct {
	// MaxBacklog bounds the undelivered events queued per subscriber.
	// Zero means unbounded. Overflow is dropped for that subscriber only.
	MaxBacklog int
	Logger     logrus.FieldLogger
	Recorder   Recorder
}

// Bus fans each published event out to every subscriber of its kind.
// Each subscriber owns a queue drained by its own goroutine, so Publish never
// waits on a reader.
type Bus struct {
	cfg Config

	mu     sync.RWMutex
	subs   map[Kind]map[uint64]*subscriber
	nextID uint64
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

type subscriber struct {
	id   uint64
	kind Kind

	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
}

func NewBus(cfg Config) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	return &Bus{
		cfg:  cfg,
		subs: make(map[Kind]map[uint64]*subscriber),
		done: make(chan struct{}),
	}
}

// Publish delivers payload to the subscribers attached at call time.
// It does not block and cannot fail the caller.
func (b *Bus) Publish(kind Kind, payload any) {
	ev := Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make([]*subscriber, 0, len(b.subs[kind]))
	for _, s := range b.subs[kind] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if !s.push(ev, b.cfg.MaxBacklog) {
			b.cfg.Recorder.EventDropped(string(kind))
			b.cfg.Logger.WithFields(logrus.Fields{
				"kind":       kind,
				"subscriber": s.id,
			}).Warn("subscriber backlog full, event dropped")
		}
	}
	b.cfg.Recorder.EventPublished(string(kind), len(targets))
}

// Subscribe attaches a reader for kind. The returned channel yields events
// published from now on, in publish order, and is closed once ctx is done or
// the bus closes. The registration is removed before the channel closes.
func (b *Bus) Subscribe(ctx context.Context, kind Kind) (<-chan Event, error) {
	return b.subscribe(ctx, kind, 0)
}

// SubscribeFunc runs fn for every event of kind until ctx is done or the bus closes.
// A panic in fn is recovered and logged; later events are still delivered.
func (b *Bus) SubscribeFunc(ctx context.Context, kind Kind, fn func(Event)) error {
	ch, err := b.subscribe(ctx, kind, 1)
	if err != nil {
		return err
	}
	go func() {
		defer b.wg.Done()
		for ev := range ch {
			b.safeCall(fn, ev)
		}
	}()
	return nil
}

// subscribe registers a subscriber and starts its drain goroutine. extra
// reserves additional WaitGroup slots for goroutines the caller starts.
func (b *Bus) subscribe(ctx context.Context, kind Kind, extra int) (<-chan Event, error) {
	s, err := b.register(kind, 1+extra)
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer b.unregister(s)
		s.drain(ctx, b.done, out)
	}()
	return out, nil
}

// Subscribers reports the number of live registrations for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Close stops accepting subscriptions, ends all streams and waits for their goroutines.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
}

// register adds the subscriber and reserves goroutines WaitGroup slots while
// holding the lock, so Close never waits concurrently with an Add.
func (b *Bus) register(kind Kind, goroutines int) (*subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.wg.Add(goroutines)

	b.nextID++
	s := &subscriber{
		id:     b.nextID,
		kind:   kind,
		notify: make(chan struct{}, 1),
	}
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[uint64]*subscriber)
	}
	b.subs[kind][s.id] = s
	b.cfg.Recorder.SubscriberAdded(string(kind))
	return s, nil
}

func (b *Bus) unregister(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.kind][s.id]; !ok {
		return
	}
	delete(b.subs[s.kind], s.id)
	if len(b.subs[s.kind]) == 0 {
		delete(b.subs, s.kind)
	}
	b.cfg.Recorder.SubscriberRemoved(string(s.kind))
}

func (b *Bus) safeCall(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.cfg.Logger.WithFields(logrus.Fields{
				"kind":     ev.Kind,
				"event_id": ev.ID,
				"panic":    fmt.Sprint(r),
			}).Error("event handler panicked")
		}
	}()
	fn(ev)
}

func (s *subscriber) push(ev Event, max int) bool {
	s.mu.Lock()
	if max > 0 && len(s.queue) >= max {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

func (s *subscriber) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = Event{}
	s.queue = s.queue[1:]
	return ev, true
}

func (s *subscriber) drain(ctx context.Context, done <-chan struct{}, out chan<- Event) {
	for {
		ev, ok := s.pop()
		if !ok {
			select {
			case <-s.notify:
				continue
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		case <-done:
			return
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) EventPublished(string, int) {}
func (nopRecorder) EventDropped(string)        {}
func (nopRecorder) SubscriberAdded(string)     {}
func (nopRecorder) SubscriberRemoved(string)   {}

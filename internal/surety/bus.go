package surety

import (
	"context"
	"errors"
	"sync"
)

// ErrSubscriptionClosed is returned by Next once a subscription is closed and drained.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Publisher receives committed events in ledger order.
type Publisher interface {
	Publish(events ...Event)
}

// Bus fans events out to subscribers. Publish never blocks: each subscription
// buffers without bound so subscribers may call back into the ledger.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewBus creates a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscription that sees every event published from now on.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus:   b,
		ready: make(chan struct{}, 1),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Bus) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		sub.push(events)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one consumer's ordered view of the bus.
type Subscription struct {
	bus    *Bus
	mu     sync.Mutex
	queue  []Event
	closed bool
	ready  chan struct{}
}

func (s *Subscription) push(events []Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, events...)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the context ends, or the
// subscription is closed and drained.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, ErrSubscriptionClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ready:
		}
	}
}

// Close detaches the subscription. Events already queued can still be read.
func (s *Subscription) Close() {
	s.bus.remove(s)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

type discard struct{}

func (discard) Publish(...Event) {}

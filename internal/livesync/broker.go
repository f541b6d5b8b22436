package livesync

import (
	"sync"

	"github.com/internhq/internhub/pkg/metrics"
)

const subscriberBuffer = 16

// Broker is the in-process change feed. Services publish an event whenever
// they mutate a tracked table; subscribers receive occurrence signals scoped
// to (table, owner).
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[*brokerSubscription]struct{}
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[*brokerSubscription]struct{}),
	}
}

// Subscribe registers a handler for change events on (table, userID).
// The handler runs on a dedicated goroutine; slow handlers drop events
// rather than block publishers, which is safe because events carry no
// payload and any one signal forces a full re-fetch.
func (b *Broker) Subscribe(table, userID string, handler func(Event)) (Subscription, error) {
	sub := &brokerSubscription{
		broker: b,
		key:    feedKey(table, userID),
		events: make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	if b.subscribers[sub.key] == nil {
		b.subscribers[sub.key] = make(map[*brokerSubscription]struct{})
	}
	b.subscribers[sub.key][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		for event := range sub.events {
			handler(event)
		}
	}()

	return sub, nil
}

// Publish notifies all subscribers registered for the event's table and owner.
func (b *Broker) Publish(event Event) {
	if event.Table == "" || event.UserID == "" {
		return
	}

	metrics.ChangeEventsPublished.WithLabelValues(event.Table).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers[feedKey(event.Table, event.UserID)] {
		select {
		case sub.events <- event:
		default:
			// Buffer full: the subscriber already has a pending signal, and
			// one signal is enough to trigger a re-fetch.
		}
	}
}

func (b *Broker) remove(sub *brokerSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs := b.subscribers[sub.key]; subs != nil {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			close(sub.events)
		}
		if len(subs) == 0 {
			delete(b.subscribers, sub.key)
		}
	}
}

type brokerSubscription struct {
	broker *Broker
	key    string
	events chan Event
	once   sync.Once
}

// Cancel releases the registration. Safe to call more than once.
func (s *brokerSubscription) Cancel() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

func feedKey(table, userID string) string {
	return table + "/" + userID
}

package livesync

import (
	"sync"

	"go.uber.org/zap"

	"github.com/internhq/internhub/pkg/logger"
	"github.com/internhq/internhub/pkg/metrics"
)

// State tracks a bridge's position in its subscription lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateSubscribing
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Invalidator drops one cached query result so the next read re-fetches.
type Invalidator func()

// Bridge holds at most one change-feed subscription for one consumer and
// turns every change event into exactly one invalidation of the notification
// list cache and one of the unread-count cache. It never merges payloads:
// any signal means "re-fetch everything".
type Bridge struct {
	feed             Feed
	invalidateList   Invalidator
	invalidateUnread Invalidator
	log              *zap.Logger

	mu       sync.Mutex
	state    State
	actorID  string
	sub      Subscription
	degraded bool
}

// NewBridge wires a bridge to its feed and cache-invalidation handles.
// Both invalidators are required; identity and caches are passed explicitly
// rather than pulled from ambient globals.
func NewBridge(feed Feed, invalidateList, invalidateUnread Invalidator) *Bridge {
	return &Bridge{
		feed:             feed,
		invalidateList:   invalidateList,
		invalidateUnread: invalidateUnread,
		log:              logger.WithModule("livesync"),
	}
}

// Connect establishes the subscription for the given actor. A failure is
// non-fatal: the bridge enters degraded mode and consumers fall back to
// read-time fetches.
func (b *Bridge) Connect(actorID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateDisconnected {
		b.teardownLocked()
	}

	b.actorID = actorID
	b.degraded = false
	if b.feed == nil || actorID == "" {
		b.degraded = true
		b.log.Warn("live sync unavailable, continuing in degraded mode",
			zap.String("actor_id", actorID))
		return
	}

	b.state = StateSubscribing
	sub, err := b.feed.Subscribe(TableNotifications, actorID, b.onEvent)
	if err != nil {
		b.state = StateDisconnected
		b.degraded = true
		b.log.Warn("change feed subscription failed, continuing in degraded mode",
			zap.String("actor_id", actorID), zap.Error(err))
		return
	}

	b.sub = sub
	b.state = StateSubscribed
	metrics.LiveSyncSubscriptions.Inc()
}

// Rebind switches the bridge to a new actor, releasing the old subscription
// first so two identities never overlap on one consumer.
func (b *Bridge) Rebind(actorID string) {
	b.Connect(actorID)
}

// Close releases the subscription. Idempotent: a closed bridge stays closed.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardownLocked()
}

// State reports the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Degraded reports whether the bridge gave up on realtime sync for the
// current actor.
func (b *Bridge) Degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.degraded
}

func (b *Bridge) onEvent(Event) {
	// One invalidation per cache per event, no payload inspection.
	b.invalidateList()
	b.invalidateUnread()
}

func (b *Bridge) teardownLocked() {
	if b.sub != nil {
		b.sub.Cancel()
		b.sub = nil
		metrics.LiveSyncSubscriptions.Dec()
	}
	b.state = StateDisconnected
	b.actorID = ""
}

package livesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, broker *Broker, table, userID string) (<-chan Event, Subscription) {
	t.Helper()

	events := make(chan Event, subscriberBuffer)
	sub, err := broker.Subscribe(table, userID, func(e Event) {
		events <- e
	})
	require.NoError(t, err)
	return events, sub
}

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()

	select {
	case e := <-events:
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBrokerDeliversToOwner(t *testing.T) {
	broker := NewBroker()
	events, sub := collectEvents(t, broker, TableNotifications, "user-1")
	defer sub.Cancel()

	broker.Publish(Event{Table: TableNotifications, UserID: "user-1", Op: OpInsert})

	got := waitForEvent(t, events)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, OpInsert, got.Op)
}

func TestBrokerScopesByOwnerAndTable(t *testing.T) {
	broker := NewBroker()
	events, sub := collectEvents(t, broker, TableNotifications, "user-1")
	defer sub.Cancel()

	broker.Publish(Event{Table: TableNotifications, UserID: "user-2", Op: OpInsert})
	broker.Publish(Event{Table: "applications", UserID: "user-1", Op: OpInsert})

	assertNoEvent(t, events)
}

func TestBrokerCancelStopsDelivery(t *testing.T) {
	broker := NewBroker()
	events, sub := collectEvents(t, broker, TableNotifications, "user-1")

	sub.Cancel()
	sub.Cancel() // repeated cancel must be safe

	broker.Publish(Event{Table: TableNotifications, UserID: "user-1", Op: OpUpdate})
	assertNoEvent(t, events)
}

func TestBrokerFanOut(t *testing.T) {
	broker := NewBroker()
	first, firstSub := collectEvents(t, broker, TableNotifications, "user-1")
	second, secondSub := collectEvents(t, broker, TableNotifications, "user-1")
	defer firstSub.Cancel()
	defer secondSub.Cancel()

	broker.Publish(Event{Table: TableNotifications, UserID: "user-1", Op: OpDelete})

	require.Equal(t, OpDelete, waitForEvent(t, first).Op)
	require.Equal(t, OpDelete, waitForEvent(t, second).Op)
}

func TestBrokerIgnoresUnroutableEvents(t *testing.T) {
	broker := NewBroker()
	// No table or owner: dropped without panic.
	broker.Publish(Event{})
	broker.Publish(Event{Table: TableNotifications})
	broker.Publish(Event{UserID: "user-1"})
}

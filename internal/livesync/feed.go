// Package livesync keeps notification consumers in step with the row store.
// A change feed delivers occurrence-only events; consumers never inspect
// payloads and always re-fetch on the next read.
package livesync

// Change operations carried on feed events. The bridge never branches on
// them; they exist for diagnostics and metrics.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// TableNotifications is the only table the bridge subscribes to today.
const TableNotifications = "notifications"

// Event signals that a row changed for the given owner. No row payload is
// guaranteed.
type Event struct {
	Table  string
	UserID string
	Op     string
}

// Subscription is a held change-feed registration. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Feed is the subscribe-by-table-and-owner primitive of the row store.
type Feed interface {
	Subscribe(table, userID string, handler func(Event)) (Subscription, error)
}

package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/internhq/internhub/internal/livesync"
	"github.com/internhq/internhub/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16 // 64 KiB, control frames only

	defaultBufferSize = 64
)

// Cache identifiers carried in change signals so clients know which of
// their local caches to refetch.
const (
	CacheList   = "list"
	CacheUnread = "unread"
)

// Signal is the occurrence-only payload pushed to clients when their
// notification data changed server-side. It deliberately carries no row
// data; clients refetch through the REST API.
type Signal struct {
	Event string `json:"event"`
	Cache string `json:"cache,omitempty"`
}

type controlMessage struct {
	Action string `json:"action"`
}

// Hub upgrades websocket connections and keeps one change-feed bridge per
// connection, translating feed events into client-facing signals.
type Hub struct {
	feed     livesync.Feed
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a realtime hub bound to the given change feed.
func NewHub(feed livesync.Feed) *Hub {
	return &Hub{
		feed: feed,
		log:  logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Allow same-origin requests and explicit localhost development.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
	}
}

// Serve upgrades the HTTP connection and binds a bridge for the user. The
// call blocks until the client disconnects.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &connection{
		hub:    h,
		socket: socket,
		userID: userID,
		send:   make(chan Signal, defaultBufferSize),
	}

	client.bridge = livesync.NewBridge(h.feed,
		func() { client.enqueue(Signal{Event: "notifications.changed", Cache: CacheList}) },
		func() { client.enqueue(Signal{Event: "notifications.changed", Cache: CacheUnread}) },
	)
	client.bridge.Connect(userID)

	if client.bridge.Degraded() {
		// The client still gets a socket; it just never receives change
		// signals and should fall back to polling.
		client.enqueue(Signal{Event: "sync.degraded"})
	}

	go client.writeLoop()
	client.readLoop()
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	userID string
	bridge *livesync.Bridge
	send   chan Signal
	once   sync.Once

	// mu orders enqueue against close. A bridge invalidation can still be
	// in flight on the feed's dispatch goroutine when teardown starts, so
	// senders must observe closed before c.send is closed.
	mu     sync.Mutex
	closed bool
}

func (c *connection) enqueue(signal Signal) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	select {
	case c.send <- signal:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.hub.log.Warn("dropping backpressure client", zap.String("user_id", c.userID))
		c.close()
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			break
		}

		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Warn("invalid control payload", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "resync":
			// Client-side recovery: rebind the feed subscription and tell
			// the client to refetch everything.
			c.bridge.Rebind(c.userID)
			c.enqueue(Signal{Event: "notifications.changed", Cache: CacheList})
			c.enqueue(Signal{Event: "notifications.changed", Cache: CacheUnread})
		case "ping":
			c.enqueue(Signal{Event: "pong"})
		default:
			c.hub.log.Warn("unsupported control action",
				zap.String("action", ctrl.Action), zap.String("user_id", c.userID))
		}
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case signal, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(signal); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.bridge.Close()
		close(c.send)
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

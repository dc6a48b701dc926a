package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/types"
)

const (
	pingInterval = 45 * time.Second
	readDeadline = 90 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

type streamMsg struct {
	Type       string           `json:"type"`
	ClientID   string           `json:"clientId,omitempty"`
	Delivery   *types.Delivery  `json:"delivery,omitempty"`
	Deliveries []types.Delivery `json:"deliveries,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	out  chan streamMsg
	done chan struct{}
}

// Hub fans delivery events out to dashboard websocket clients and replays
// the most recent ones to each new client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	history []types.Delivery
	limit   int
	logger  *zap.Logger
}

func NewHub(limit int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		history: make([]types.Delivery, 0, limit),
		limit:   limit,
		logger:  logger,
	}
}

// Publish records d and broadcasts it. Slow clients miss events rather than
// block the sender. A nil Hub ignores the call.
func (h *Hub) Publish(d types.Delivery) {
	if h == nil {
		return
	}

	h.mu.Lock()
	h.history = append(h.history, d)
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	h.mu.Unlock()

	h.broadcast(streamMsg{Type: "delivery", Delivery: &d})
}

func (h *Hub) History() []types.Delivery {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.Delivery, len(h.history))
	copy(out, h.history)
	return out
}

func (h *Hub) broadcast(m streamMsg) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- m:
		default:
		}
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan streamMsg, 64),
		done: make(chan struct{}),
	}

	// Queue the greeting and backlog before registering so they precede
	// any live event.
	cl.out <- streamMsg{Type: "status", ClientID: cl.id}
	cl.out <- streamMsg{Type: "history", Deliveries: h.History()}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", zap.String("client_id", cl.id))

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		close(cl.done)
		h.logger.Debug("stream client disconnected", zap.String("client_id", cl.id))
	}()

	go cl.writeLoop()

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case m := <-c.out:
			if err := c.conn.WriteJSON(m); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

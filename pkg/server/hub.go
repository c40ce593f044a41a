package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JimmyLeeSnow/xyflow/pkg/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// clientBuffer is the per-client send queue. A client that cannot
	// drain this many snapshots is dropped rather than stalling the
	// broadcast loop.
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Single-user local editor; cross-origin pages may embed it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans store snapshots out to websocket clients. Each client gets
// the full snapshot on connect and on every coalesced store change.
type hub struct {
	srv *Server

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	connected time.Time
}

func newHub(s *Server) *hub {
	return &hub{
		srv:     s,
		clients: make(map[*wsClient]struct{}),
	}
}

// handleWS upgrades the connection and streams snapshots until the
// client disconnects.
func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.srv.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, clientBuffer),
		connected: time.Now(),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	observability.Server().OnConnect(r.Context(), c.id)
	h.srv.log.Info("client connected", "client", c.id)

	// Initial state so the client does not wait for the next mutation.
	if data, err := h.srv.encodeSnapshot(r.Context()); err == nil {
		c.send <- data
	}

	go h.writePump(c)
	h.readPump(c)
}

// notify is wired to store.OnChange. It runs on the mutating
// goroutine, so encoding happens here but delivery is per-client
// buffered.
func (h *hub) notify() {
	data, err := h.srv.encodeSnapshot(context.Background())
	if err != nil {
		h.srv.log.Error("snapshot encode failed", "err", err)
		return
	}

	h.mu.Lock()
	subscribers := len(h.clients)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client: drop it instead of blocking mutations.
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.mu.Unlock()

	if subscribers > 0 {
		observability.Server().OnBroadcast(context.Background(), subscribers, len(data))
	}
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// closeAll disconnects every client. Used on shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump consumes and discards inbound frames to keep the connection
// alive and to detect disconnects. Mutations go through the HTTP API.
func (h *hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		observability.Server().OnDisconnect(context.Background(), c.id, time.Since(c.connected))
		h.srv.log.Info("client disconnected", "client", c.id)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package bridge

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// The app serves the page itself on localhost, so same-origin checks are
// relaxed to accept the embedded UI.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// InboundHandler receives every message a client sends. It runs on the
// client's read goroutine; replies go through client.Send or hub.Broadcast.
type InboundHandler func(client *Client, env Envelope)

// Hub tracks connected map clients and fans outbound envelopes out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	handler InboundHandler
}

// NewHub creates a hub dispatching inbound messages to handler.
func NewHub(handler InboundHandler) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		handler: handler,
	}
}

// Client is one connected browser session.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Envelope
	once sync.Once
}

// Send queues an envelope for this client. Full buffers drop the client;
// a stuck browser must not block the hub.
func (c *Client) Send(env Envelope) {
	select {
	case c.send <- env:
	default:
		zap.L().Warn("bridge: client send buffer full, dropping client")
		c.close()
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.send)
	})
}

// Broadcast queues an envelope for every connected client.
func (h *Hub) Broadcast(env Envelope) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(env)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("bridge: websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan Envelope, sendBuffer),
	}
	h.register(client)
	zap.L().Debug("bridge: client connected", zap.Int("clients", h.ClientCount()))

	go client.writePump()
	client.readPump()
}

// readPump reads inbound envelopes and dispatches them to the handler.
func (c *Client) readPump() {
	defer func() {
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("bridge: read", zap.Error(err))
			}
			return
		}
		if env.Type == "" {
			continue
		}
		if c.hub.handler != nil {
			c.hub.handler(c, env)
		}
	}
}

// writePump writes queued envelopes and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

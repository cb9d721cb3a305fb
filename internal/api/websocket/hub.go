package websocket

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// Broadcasts queued before BroadcastEvent blocks.
	broadcastBuffer = 64
	clientBuffer    = 256
)

// Event is one frame sent to clients. Broadcast events carry an increasing
// Seq so a client can tell when it missed one; greeting events have Seq 0.
type Event struct {
	Seq  uint64      `json:"seq"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Topic returns the part of an event type before the colon, so
// "groups:changed" belongs to "groups".
func Topic(eventType string) string {
	topic, _, _ := strings.Cut(eventType, ":")
	return topic
}

// subscribeMessage is the only message clients send. An empty list
// subscribes to every topic.
type subscribeMessage struct {
	Topics []string `json:"topics"`
}

// Client is one connected renderer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[string]bool
}

func (c *Client) setTopics(list []string) {
	topics := make(map[string]bool, len(list))
	for _, t := range list {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = true
		}
	}
	c.mu.Lock()
	c.topics = topics
	c.mu.Unlock()
}

func (c *Client) wants(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics) == 0 || c.topics[topic]
}

// HubOptions configures a Hub.
type HubOptions struct {
	// CheckOrigin decides whether an upgrade request is allowed. Nil allows
	// every origin.
	CheckOrigin func(r *http.Request) bool

	// Greeting returns the events a client receives right after it
	// connects, typically the current filter and group state.
	Greeting func() []Event

	Logger *slog.Logger
}

type frame struct {
	topic string
	data  []byte
}

// Hub fans dispatcher events out to connected clients by topic.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan frame
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	stopped    bool
	mu         sync.RWMutex

	seq      atomic.Uint64
	greeting func() []Event
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a Hub. Call Run to start delivering events.
func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(*http.Request) bool { return true }
	}

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan frame, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		greeting:   opts.Greeting,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		logger: opts.Logger,
	}
}

// Run delivers broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "clients", count)

		case f := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(f.topic) {
					continue
				}
				select {
				case client.send <- f.data:
				default:
					h.logger.Warn("dropping slow websocket client")
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent stamps ev with the next sequence number and queues it for
// every client subscribed to its topic. It returns false once the hub has
// stopped.
func (h *Hub) BroadcastEvent(ev Event) bool {
	if h.IsStopped() {
		return false
	}

	ev.Seq = h.seq.Add(1)
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("failed to encode websocket event", "type", ev.Type, "error", err)
		return false
	}

	select {
	case h.broadcast <- frame{topic: Topic(ev.Type), data: data}:
		return true
	case <-h.done:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client. Later calls do nothing.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// IsStopped reports whether Run has shut down.
func (h *Hub) IsStopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// ServeWs upgrades the request and registers the client. The optional
// topics query parameter ("groups,filter") sets the initial subscription.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.IsStopped() {
		http.Error(w, "websocket hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	if topics := r.URL.Query().Get("topics"); topics != "" {
		client.setTopics(strings.Split(topics, ","))
	}
	h.greet(client)

	select {
	case h.register <- client:
		go client.writePump()
		go client.readPump()
	case <-h.done:
		_ = conn.Close()
	}
}

// greet queues the greeting events the client subscribed to. It runs before
// registration, so the greeting always precedes broadcasts.
func (h *Hub) greet(c *Client) {
	if h.greeting == nil {
		return
	}
	for _, ev := range h.greeting() {
		if !c.wants(Topic(ev.Type)) {
			continue
		}
		ev.Seq = 0
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Warn("failed to encode greeting", "type", ev.Type, "error", err)
			continue
		}
		select {
		case c.send <- data:
		default:
			return
		}
	}
}

// readPump applies subscription changes and processes pongs and close
// frames until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var sub subscribeMessage
		if err := json.Unmarshal(message, &sub); err != nil {
			c.hub.logger.Debug("ignoring websocket message", "error", err)
			continue
		}
		c.setTopics(sub.Topics)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One event per frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/metrics"
)

const sendBufferSize = 64

// Client is one live connection. Frames queued on send are written by the
// transport's write loop.
type Client struct {
	ID     string
	UserID uuid.UUID
	send   chan []byte
	topics map[string]struct{}
}

func NewClient(userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
		topics: make(map[string]struct{}),
	}
}

// Send exposes the outbound queue. It is closed when the hub unregisters
// the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub owns every live connection, the topic memberships and the identity
// directory. It implements Dispatcher.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	topics    map[string]map[string]*Client
	directory *Directory
	logger    *slog.Logger
}

func NewHub(directory *Directory, logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		topics:    make(map[string]map[string]*Client),
		directory: directory,
		logger:    logger,
	}
}

func (h *Hub) Directory() *Directory {
	return h.directory
}

// Register adds the client and binds its user to it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.directory.Bind(c.UserID, c.ID)
	metrics.RealtimeConnections.Inc()
	h.logger.Debug("realtime client connected", "user_id", c.UserID, "conn_id", c.ID)
}

// Unregister drops the client from every topic and closes its send queue.
// Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for topic := range c.topics {
		h.removeFromTopic(topic, c)
	}
	close(c.send)
	h.mu.Unlock()

	h.directory.Release(c.UserID, c.ID)
	metrics.RealtimeConnections.Dec()
	h.logger.Debug("realtime client disconnected", "user_id", c.UserID, "conn_id", c.ID)
}

func (h *Hub) Join(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[string]*Client)
		h.topics[topic] = members
	}
	members[c.ID] = c
	c.topics[topic] = struct{}{}
}

func (h *Hub) Leave(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopic(topic, c)
}

// Joined reports whether the client is subscribed to topic.
func (h *Hub) Joined(c *Client, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}

// TopicSize returns the number of connections subscribed to topic.
func (h *Hub) TopicSize(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// removeFromTopic requires h.mu held for writing.
func (h *Hub) removeFromTopic(topic string, c *Client) {
	delete(c.topics, topic)
	if members, ok := h.topics[topic]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Deliver pushes an event to the user's bound connection, if any.
func (h *Hub) Deliver(userID uuid.UUID, event string, payload interface{}) {
	connID, ok := h.directory.Lookup(userID)
	if !ok {
		metrics.RealtimeEventsTotal.WithLabelValues(event, "no_connection").Inc()
		h.logger.Debug("no live connection for user", "user_id", userID, "event", event)
		return
	}

	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connID]
	if !ok {
		metrics.RealtimeEventsTotal.WithLabelValues(event, "no_connection").Inc()
		return
	}
	h.enqueue(c, event, frame)
}

func (h *Hub) BroadcastToTopic(topic, event string, payload interface{}) {
	h.broadcast(topic, "", event, payload)
}

// BroadcastToTopicExcept skips the connection that originated the event.
func (h *Hub) BroadcastToTopicExcept(topic, exceptConnID, event string, payload interface{}) {
	h.broadcast(topic, exceptConnID, event, payload)
}

func (h *Hub) BroadcastAll(event string, payload interface{}) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		h.enqueue(c, event, frame)
	}
}

func (h *Hub) broadcast(topic, except, event string, payload interface{}) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.topics[topic] {
		if id == except {
			continue
		}
		h.enqueue(c, event, frame)
	}
}

// enqueue never blocks; a full buffer drops the frame. Requires h.mu held
// so the channel cannot be closed underneath the send.
func (h *Hub) enqueue(c *Client, event string, frame []byte) {
	select {
	case c.send <- frame:
		metrics.RealtimeEventsTotal.WithLabelValues(event, "delivered").Inc()
	default:
		metrics.RealtimeEventsTotal.WithLabelValues(event, "buffer_full").Inc()
		h.logger.Warn("realtime send buffer full, dropping event",
			"user_id", c.UserID, "conn_id", c.ID, "event", event)
	}
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, bool) {
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to encode realtime event", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

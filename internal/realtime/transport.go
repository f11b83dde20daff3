package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vibhor121/mastersunion/internal/auth"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// UserLoader resolves the account behind a token so inactive users are
// refused at the handshake.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// JoinAuthorizer decides whether a user may watch a lead topic.
type JoinAuthorizer func(ctx context.Context, user *models.User, leadID uuid.UUID) bool

type Handler struct {
	hub      *Hub
	jwt      auth.TokenService
	users    UserLoader
	canJoin  JoinAuthorizer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(hub *Hub, jwt auth.TokenService, users UserLoader, canJoin JoinAuthorizer, allowedOrigins []string, logger *slog.Logger) *Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Handler{
		hub:     hub,
		jwt:     jwt,
		users:   users,
		canJoin: canJoin,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// ServeHTTP authenticates the handshake, upgrades the connection and runs
// its read and write loops until either side closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !user.IsActive {
		http.Error(w, "account is inactive", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	c := NewClient(user.ID)
	h.hub.Register(c)

	h.reply(c, EventConnected, map[string]interface{}{
		"userId": user.ID,
		"connId": c.ID,
	})

	go h.writeLoop(conn, c)
	h.readLoop(r.Context(), conn, c, user)
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// relayPayload is the body of activity:created and lead:updated frames.
type relayPayload struct {
	LeadID uuid.UUID `json:"leadId"`
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, c *Client, user *models.User) {
	defer func() {
		h.hub.Unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.reply(c, EventError, map[string]string{"error": "malformed frame"})
			continue
		}
		h.handle(ctx, c, user, msg)
	}
}

func (h *Handler) handle(ctx context.Context, c *Client, user *models.User, msg inbound) {
	switch msg.Event {
	case EventJoinLead, EventLeaveLead:
		var leadID uuid.UUID
		if err := json.Unmarshal(msg.Data, &leadID); err != nil {
			h.reply(c, EventError, map[string]string{"error": "invalid lead id"})
			return
		}
		if msg.Event == EventLeaveLead {
			h.hub.Leave(c, LeadTopic(leadID))
			return
		}
		if h.canJoin != nil && !h.canJoin(ctx, user, leadID) {
			h.reply(c, EventError, map[string]string{"error": "forbidden"})
			return
		}
		h.hub.Join(c, LeadTopic(leadID))

	case EventActivityCreated, EventLeadUpdated:
		var body relayPayload
		if err := json.Unmarshal(msg.Data, &body); err != nil || body.LeadID == uuid.Nil {
			h.reply(c, EventError, map[string]string{"error": "leadId required"})
			return
		}
		topic := LeadTopic(body.LeadID)
		if !h.hub.Joined(c, topic) {
			h.reply(c, EventError, map[string]string{"error": "join the lead first"})
			return
		}
		relayed := EventActivityNew
		if msg.Event == EventLeadUpdated {
			relayed = EventLeadChanged
		}
		h.hub.BroadcastToTopicExcept(topic, c.ID, relayed, msg.Data)

	default:
		h.reply(c, EventError, map[string]string{"error": "unknown event"})
	}
}

func (h *Handler) reply(c *Client, event string, payload interface{}) {
	frame, ok := h.hub.encode(event, payload)
	if !ok {
		return
	}
	h.hub.mu.RLock()
	defer h.hub.mu.RUnlock()
	if _, live := h.hub.clients[c.ID]; live {
		h.hub.enqueue(c, event, frame)
	}
}

func (h *Handler) writeLoop(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package realtime

import "github.com/google/uuid"

// Server to client events.
const (
	EventConnected       = "connected"
	EventNotificationNew = "notification:new"
	EventLeadChanged     = "lead:changed"
	EventActivityNew     = "activity:new"
	EventError           = "error"
)

// Client to server events.
const (
	EventJoinLead        = "join:lead"
	EventLeaveLead       = "leave:lead"
	EventActivityCreated = "activity:created"
	EventLeadUpdated     = "lead:updated"
)

// Envelope is the JSON frame exchanged over a connection in both directions.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// LeadTopic names the topic watched by viewers of one lead.
func LeadTopic(leadID uuid.UUID) string {
	return "lead:" + leadID.String()
}

// Dispatcher pushes events to live connections. Every method is
// fire-and-forget: nothing is queued for absent users and no error is
// returned to the caller.
type Dispatcher interface {
	Deliver(userID uuid.UUID, event string, payload interface{})
	BroadcastToTopic(topic, event string, payload interface{})
	BroadcastAll(event string, payload interface{})
}

// Nop discards every event. Used where no real-time transport runs, such
// as the background worker.
type Nop struct{}

func (Nop) Deliver(uuid.UUID, string, interface{})        {}
func (Nop) BroadcastToTopic(string, string, interface{}) {}
func (Nop) BroadcastAll(string, interface{})             {}

var (
	_ Dispatcher = (*Hub)(nil)
	_ Dispatcher = Nop{}
)

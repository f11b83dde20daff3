package realtime_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"github.com/vibhor121/mastersunion/pkg/util"
)

func newHub() *realtime.Hub {
	return realtime.NewHub(realtime.NewDirectory(), util.DiscardLogger())
}

func drain(c *realtime.Client) []realtime.Envelope {
	var out []realtime.Envelope
	for {
		select {
		case frame, ok := <-c.Send():
			if !ok {
				return out
			}
			var env realtime.Envelope
			if err := json.Unmarshal(frame, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestHub_Deliver(t *testing.T) {
	t.Run("absent user is a silent no-op", func(t *testing.T) {
		hub := newHub()
		assert.NotPanics(t, func() {
			hub.Deliver(uuid.New(), realtime.EventNotificationNew, map[string]string{"id": "x"})
		})
	})

	t.Run("delivers to the bound connection only", func(t *testing.T) {
		hub := newHub()
		alice := realtime.NewClient(uuid.New())
		bob := realtime.NewClient(uuid.New())
		hub.Register(alice)
		hub.Register(bob)

		hub.Deliver(alice.UserID, realtime.EventNotificationNew, map[string]string{"title": "hi"})

		got := drain(alice)
		require.Len(t, got, 1)
		assert.Equal(t, realtime.EventNotificationNew, got[0].Event)
		assert.Empty(t, drain(bob))
	})

	t.Run("reconnect routes to the newest connection", func(t *testing.T) {
		hub := newHub()
		user := uuid.New()
		first := realtime.NewClient(user)
		second := realtime.NewClient(user)
		hub.Register(first)
		hub.Register(second)

		hub.Unregister(first)
		hub.Deliver(user, realtime.EventNotificationNew, "ping")

		got := drain(second)
		require.Len(t, got, 1)

		connID, ok := hub.Directory().Lookup(user)
		assert.True(t, ok)
		assert.Equal(t, second.ID, connID)
	})

	t.Run("full buffer drops without blocking", func(t *testing.T) {
		hub := newHub()
		c := realtime.NewClient(uuid.New())
		hub.Register(c)

		for i := 0; i < 500; i++ {
			hub.Deliver(c.UserID, realtime.EventNotificationNew, i)
		}

		assert.Len(t, drain(c), 64)
	})

	t.Run("unencodable payload is dropped", func(t *testing.T) {
		hub := newHub()
		c := realtime.NewClient(uuid.New())
		hub.Register(c)

		hub.Deliver(c.UserID, realtime.EventNotificationNew, make(chan int))
		assert.Empty(t, drain(c))
	})
}

func TestHub_Topics(t *testing.T) {
	hub := newHub()
	viewer1 := realtime.NewClient(uuid.New())
	viewer2 := realtime.NewClient(uuid.New())
	outsider := realtime.NewClient(uuid.New())
	for _, c := range []*realtime.Client{viewer1, viewer2, outsider} {
		hub.Register(c)
	}

	topic := realtime.LeadTopic(uuid.New())
	hub.Join(viewer1, topic)
	hub.Join(viewer2, topic)
	assert.Equal(t, 2, hub.TopicSize(topic))
	assert.True(t, hub.Joined(viewer1, topic))
	assert.False(t, hub.Joined(outsider, topic))

	t.Run("broadcast reaches members", func(t *testing.T) {
		hub.BroadcastToTopic(topic, realtime.EventLeadChanged, "v2")
		assert.Len(t, drain(viewer1), 1)
		assert.Len(t, drain(viewer2), 1)
		assert.Empty(t, drain(outsider))
	})

	t.Run("except skips the originator", func(t *testing.T) {
		hub.BroadcastToTopicExcept(topic, viewer1.ID, realtime.EventActivityNew, "a")
		assert.Empty(t, drain(viewer1))
		assert.Len(t, drain(viewer2), 1)
	})

	t.Run("leave and disconnect end membership", func(t *testing.T) {
		hub.Leave(viewer1, topic)
		assert.Equal(t, 1, hub.TopicSize(topic))

		hub.Unregister(viewer2)
		assert.Equal(t, 0, hub.TopicSize(topic))

		hub.BroadcastToTopic(topic, realtime.EventLeadChanged, "v3")
		assert.Empty(t, drain(viewer1))
	})

	t.Run("broadcast all", func(t *testing.T) {
		hub.BroadcastAll(realtime.EventNotificationNew, "all")
		assert.Len(t, drain(viewer1), 1)
		assert.Len(t, drain(outsider), 1)
	})

	t.Run("unregister twice is harmless", func(t *testing.T) {
		assert.NotPanics(t, func() {
			hub.Unregister(outsider)
			hub.Unregister(outsider)
		})
		_, ok := hub.Directory().Lookup(outsider.UserID)
		assert.False(t, ok)
	})
}

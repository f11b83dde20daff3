package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/mail"
)

// DispatchedEvent is one call recorded by FakeDispatcher. UserID is nil for
// topic and global broadcasts.
type DispatchedEvent struct {
	UserID  uuid.UUID
	Topic   string
	Event   string
	Payload interface{}
}

// FakeDispatcher records every dispatch instead of pushing it anywhere.
type FakeDispatcher struct {
	mu     sync.Mutex
	events []DispatchedEvent
}

func (f *FakeDispatcher) Deliver(userID uuid.UUID, event string, payload interface{}) {
	f.record(DispatchedEvent{UserID: userID, Event: event, Payload: payload})
}

func (f *FakeDispatcher) BroadcastToTopic(topic, event string, payload interface{}) {
	f.record(DispatchedEvent{Topic: topic, Event: event, Payload: payload})
}

func (f *FakeDispatcher) BroadcastAll(event string, payload interface{}) {
	f.record(DispatchedEvent{Topic: "*", Event: event, Payload: payload})
}

func (f *FakeDispatcher) record(e DispatchedEvent) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *FakeDispatcher) Events() []DispatchedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DispatchedEvent(nil), f.events...)
}

func (f *FakeDispatcher) DeliveredTo(userID uuid.UUID) []DispatchedEvent {
	var out []DispatchedEvent
	for _, e := range f.Events() {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (f *FakeDispatcher) OnTopic(topic string) []DispatchedEvent {
	var out []DispatchedEvent
	for _, e := range f.Events() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

func (f *FakeDispatcher) Reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

// FakeEmailQueue collects enqueued mail. Setting Err makes every Enqueue
// fail.
type FakeEmailQueue struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func (f *FakeEmailQueue) Enqueue(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *FakeEmailQueue) Messages() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.messages...)
}

func (f *FakeEmailQueue) Reset() {
	f.mu.Lock()
	f.messages = nil
	f.mu.Unlock()
}

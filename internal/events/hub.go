package events

import (
	"context"
	"sync"
	"time"
)

// Event types pushed to browsers and to the message broker.
const (
	TypeSignedIn         = "signed_in"
	TypeSignedOut        = "signed_out"
	TypeRankings         = "rankings"
	TypeQuizCreated      = "quiz.created"
	TypeAnswersSubmitted = "answers.submitted"
)

// TopicRankings carries leaderboard snapshots.
const TopicRankings = "rankings"

// SessionTopic is the topic for session-change events of one browser session.
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// Event is a single notification on a topic.
type Event struct {
	Type    string    `json:"type"`
	Topic   string    `json:"topic"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher sends domain events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Hub fans events out to in-process subscribers per topic.
type Hub struct {
	mu     sync.Mutex
	now    func() time.Time
	topics map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		now:    time.Now,
		topics: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe returns a channel receiving events for topic.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.topics[topic]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of topic without blocking.
// A full subscriber buffer loses its oldest event.
func (h *Hub) Publish(topic, typ string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	evt := Event{Type: typ, Topic: topic, Payload: payload, At: h.now()}
	for ch := range h.topics[topic] {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

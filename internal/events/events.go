// Package events publishes document mutation events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"snapgram/internal/observability"

	k "github.com/segmentio/kafka-go"
)

// Event types.
const (
	UserCreated   = "user.created"
	UserUpdated   = "user.updated"
	PostCreated   = "post.created"
	PostUpdated   = "post.updated"
	PostDeleted   = "post.deleted"
	PostLiked     = "post.liked"
	SaveCreated   = "save.created"
	SaveDeleted   = "save.deleted"
	FollowCreated = "follow.created"
	FollowDeleted = "follow.deleted"
)

// Event describes one successful document mutation.
type Event struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...k.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by document ID.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates an async writer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &k.Writer{
		Addr:         k.TCP(brokers...),
		Topic:        topic,
		Balancer:     &k.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: k.RequireOne,
		Async:        true,
		Completion: func(messages []k.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				observability.EventPublishFailures.WithLabelValues(headerValue(m, "type")).Inc()
			}
			observability.Logger.Warn("kafka delivery failed", "count", len(messages), "error", err.Error())
		},
	}
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, k.Message{
		Key:     []byte(e.DocumentID),
		Value:   b,
		Time:    e.At,
		Headers: []k.Header{{Key: "type", Value: []byte(e.Type)}},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func headerValue(m k.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

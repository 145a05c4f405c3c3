package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	k "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	writeFn  func(ctx context.Context, msgs ...k.Message) error
	messages []k.Message
}

func (s *stubWriter) WriteMessages(ctx context.Context, msgs ...k.Message) error {
	s.messages = append(s.messages, msgs...)
	if s.writeFn != nil {
		return s.writeFn(ctx, msgs...)
	}
	return nil
}

func (s *stubWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &stubWriter{}
	p := &KafkaPublisher{w: w}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	err := p.Publish(context.Background(), Event{Type: PostCreated, Collection: "posts", DocumentID: "p1", ActorID: "u1", At: at})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "p1", string(msg.Key))
	assert.Equal(t, PostCreated, headerValue(msg, "type"))
	assert.Equal(t, at, msg.Time)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "posts", decoded.Collection)
	assert.Equal(t, "u1", decoded.ActorID)
}

func TestKafkaPublisher_PropagatesWriteError(t *testing.T) {
	w := &stubWriter{writeFn: func(context.Context, ...k.Message) error { return errors.New("broker down") }}
	p := &KafkaPublisher{w: w}

	err := p.Publish(context.Background(), Event{Type: SaveCreated, DocumentID: "s1"})
	assert.EqualError(t, err, "broker down")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Publish(context.Background(), Event{Type: FollowCreated})
	_ = r.Publish(context.Background(), Event{Type: FollowDeleted})
	assert.Equal(t, []string{FollowCreated, FollowDeleted}, r.Types())
}

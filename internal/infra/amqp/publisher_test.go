package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"quiz-portal/internal/events"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	sent       []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	if kind == amqp091.ExchangeTopic && durable {
		f.declared = append(f.declared, name)
	}
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "quiz.events")
	require.NoError(t, err)
	assert.Equal(t, []string{"quiz.events"}, ch.declared)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	err = p.Publish(context.Background(), events.Event{
		Type:    events.TypeAnswersSubmitted,
		Topic:   events.TypeAnswersSubmitted,
		Payload: map[string]any{"quizId": 7, "correct": 2},
		At:      at,
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "quiz.events", sent.exchange)
	assert.Equal(t, "answers.submitted", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, at, sent.msg.Timestamp)

	var body struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
	assert.Equal(t, "answers.submitted", body.Type)
	assert.EqualValues(t, 7, body.Payload["quizId"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNewPublisherFailsOnDeclare(t *testing.T) {
	_, err := newPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "quiz.events")
	assert.ErrorContains(t, err, "declare exchange")
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	notificationQueue = "assign_notifications"
	webhookQueue      = "assign_webhooks"
)

// AMQPQueues publishes notifications and webhook events to durable RabbitMQ
// queues. Downstream consumers own delivery and retry.
type AMQPQueues struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPQueues connects to RabbitMQ and declares the engine's queues.
func NewAMQPQueues(url string) (*AMQPQueues, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	for _, name := range []string{notificationQueue, webhookQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return &AMQPQueues{conn: conn, channel: ch}, nil
}

// Close tears down the channel and connection.
func (q *AMQPQueues) Close() error {
	if err := q.channel.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}

type notificationMessage struct {
	UserIDs []uint64  `json:"user_ids"`
	Kind    Kind      `json:"kind"`
	Payload Payload   `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// Notify publishes a notification message for the given users.
func (q *AMQPQueues) Notify(ctx context.Context, userIDs []uint64, kind Kind, payload Payload) error {
	body, err := json.Marshal(notificationMessage{
		UserIDs: userIDs,
		Kind:    kind,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return q.publish(ctx, notificationQueue, body)
}

type webhookMessage struct {
	EventID string    `json:"event_id"`
	Event   string    `json:"event"`
	Payload Payload   `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// Emit publishes a webhook event.
func (q *AMQPQueues) Emit(ctx context.Context, event string, payload Payload) error {
	body, err := json.Marshal(webhookMessage{
		EventID: uuid.NewString(),
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	return q.publish(ctx, webhookQueue, body)
}

func (q *AMQPQueues) publish(ctx context.Context, queue string, body []byte) error {
	return q.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

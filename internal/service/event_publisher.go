// Package service holds outbound integrations used by the HTTP handlers.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/account-service/internal/apperror"
	"github.com/iliyamo/account-service/internal/queue"
)

// EventPublisher publishes account events to a durable RabbitMQ queue. Each
// publish opens its own connection; event volume is one per account
// mutation.
type EventPublisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

func NewEventPublisher(url, queueName string, logger *slog.Logger) *EventPublisher {
	if queueName == "" {
		queueName = queue.DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{url: url, queue: queueName, logger: logger}
}

// Publish sends ev as a persistent JSON message. Errors are logged and
// returned coded EVENT_PUBLISH_FAILED so callers can choose to ignore them.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.AccountEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := p.publish(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "rabbitmq: publish failed", "event", ev.Type, "user_id", ev.UserID, "error", err)
		return apperror.Events(ev.Type, err)
	}
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, ev queue.AccountEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Type,
			Body:         body,
		},
	)
}

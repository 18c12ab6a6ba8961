package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartAccountConsumer connects to RabbitMQ, declares queueName (durable)
// and consumes account events until ctx is cancelled. Broker failures are
// logged and retried with backoff. Messages that cannot be handled are
// rejected without requeue so one bad payload cannot wedge the queue.
func StartAccountConsumer(ctx context.Context, url, queueName string, logger *slog.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("account consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("account consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("account consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(ctx, logger, d.Body); err != nil {
			logger.Error("account consumer: handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage logs the notification an event would trigger. Users who
// turned email notifications off get a log line but no email notice.
func handleMessage(ctx context.Context, logger *slog.Logger, body []byte) error {
	var ev AccountEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserID == "" {
		return errors.New("event without user_id")
	}

	attrs := []any{"event", ev.Type, "user_id", ev.UserID, "occurred_at", ev.OccurredAt}
	switch ev.Type {
	case EventUserRegistered:
		logger.InfoContext(ctx, "welcome notification", append(attrs, "email", ev.Email, "name", ev.Name)...)
	case EventPasswordChanged:
		if !ev.EmailNotifications {
			logger.InfoContext(ctx, "password change notice suppressed", attrs...)
			return nil
		}
		logger.InfoContext(ctx, "password change notification", append(attrs, "email", ev.Email)...)
	case EventEmailNotificationsChanged:
		logger.InfoContext(ctx, "email notification preference updated",
			append(attrs, "email_notifications", ev.EmailNotifications)...)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

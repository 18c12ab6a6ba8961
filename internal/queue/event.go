// Package queue defines the account events exchanged over the message broker
// and the consumer that turns them into notifications.
package queue

import "time"

// DefaultQueue is the durable queue account events are published to.
const DefaultQueue = "account.events"

// Event types.
const (
	EventUserRegistered            = "user.registered"
	EventPasswordChanged           = "user.password_changed"
	EventEmailNotificationsChanged = "user.email_notifications_changed"
)

// AccountEvent is published after a successful account mutation. It carries
// enough for consumers to notify the user without reading the store.
type AccountEvent struct {
	Type               string    `json:"type"`
	UserID             string    `json:"user_id"`
	Email              string    `json:"email"`
	Name               string    `json:"name,omitempty"`
	EmailNotifications bool      `json:"email_notifications"`
	OccurredAt         time.Time `json:"occurred_at"`
}

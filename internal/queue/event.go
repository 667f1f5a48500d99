// Package queue carries notifications over RabbitMQ: a fire-and-forget
// publisher used by the services and a consumer that persists what it
// receives.
package queue

import (
	"time"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

// NotificationQueue is the durable queue both sides declare.
const NotificationQueue = "notifications"

// NotificationEvent is the wire form of a notification.  It carries the
// notification id so a redelivered message is stored once.
type NotificationEvent struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	RelatedID string `json:"related_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func eventFrom(n model.Notification) NotificationEvent {
	return NotificationEvent{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		RelatedID: n.RelatedID,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (e NotificationEvent) notification() model.Notification {
	created, err := time.Parse(time.RFC3339, e.CreatedAt)
	if err != nil {
		created = time.Now().UTC()
	}
	return model.Notification{
		ID:        e.ID,
		UserID:    e.UserID,
		Type:      e.Type,
		Title:     e.Title,
		Message:   e.Message,
		Link:      e.Link,
		RelatedID: e.RelatedID,
		CreatedAt: created.UTC().Truncate(time.Second),
	}
}

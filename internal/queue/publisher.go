package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

// Publisher publishes notifications to the notifications queue.  Notify
// returns immediately; the publish runs in its own goroutine bounded by
// the publish timeout.
type Publisher struct {
	url     string
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewPublisher(url string, timeout time.Duration, logger *zap.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{url: url, timeout: timeout, logger: logger}
}

// Notify schedules n for publishing.  Delivery failures are logged.
func (p *Publisher) Notify(_ context.Context, n model.Notification) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, n); err != nil {
			p.logger.Warn("publish notification failed",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until in-flight publishes finish.
func (p *Publisher) Wait() { p.wg.Wait() }

// Publish sends n synchronously as a persistent message.
func (p *Publisher) Publish(ctx context.Context, n model.Notification) error {
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

	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return err
	}
	body, err := json.Marshal(eventFrom(n))
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", NotificationQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

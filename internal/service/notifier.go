package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

// Notifier delivers a notification to a user.  Implementations may be
// asynchronous; callers treat delivery as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.Notification) error { return nil }

// StoreNotifier writes notifications straight to the notifications table.
// It is the sink when no broker is configured, and the consumer's target
// when one is.
type StoreNotifier struct {
	store *repository.Store
}

func NewStoreNotifier(store *repository.Store) *StoreNotifier {
	return &StoreNotifier{store: store}
}

// Notify persists n.  Redelivered messages carry the same id and are
// ignored.
func (s *StoreNotifier) Notify(ctx context.Context, n model.Notification) error {
	err := s.store.Notifications.Create(ctx, s.store.DB(), &n)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}

// RecordingNotifier keeps every notification in memory.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *RecordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the notifications received so far.
func (r *RecordingNotifier) Sent() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// For returns the notifications addressed to userID.
func (r *RecordingNotifier) For(userID string) []model.Notification {
	var out []model.Notification
	for _, n := range r.Sent() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

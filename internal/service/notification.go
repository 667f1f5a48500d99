package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

// NotificationService reads the caller's persisted notifications.
type NotificationService struct {
	*core
}

func (s *NotificationService) List(ctx context.Context, actor model.Actor, unreadOnly bool) ([]model.Notification, error) {
	out, err := s.store.Notifications.ListByUser(ctx, s.store.DB(), actor.UserID, unreadOnly)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor model.Actor, id string) error {
	if err := s.store.Notifications.MarkRead(ctx, s.store.DB(), id, actor.UserID); err != nil {
		return lookup(err, "notification")
	}
	return nil
}

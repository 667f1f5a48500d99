// Package service implements the scheduling core: tutor availability,
// session proposals, the tutoring session state machine, group
// attendance and the hour-wallet ledger.  Every mutating operation runs
// in one database transaction; notifications are sent after commit.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

// RefundPolicy decides what happens to minutes reserved at join when a
// session is cancelled.
type RefundPolicy string

const (
	// RefundNone keeps every reservation.
	RefundNone RefundPolicy = "none"
	// RefundUnstarted returns reservations of sessions cancelled before
	// they reached in_progress.
	RefundUnstarted RefundPolicy = "unstarted"
)

// Options tunes the scheduling policies.
type Options struct {
	// EnforceAvailability requires proposals to fit inside one of the
	// tutor's active availability windows, when the tutor has any.
	EnforceAvailability bool
	CancelRefund        RefundPolicy
	// Now overrides the clock; tests use it to pin time.
	Now func() time.Time
}

// Services bundles the scheduling services over one store.
type Services struct {
	Availability  *AvailabilityService
	Proposals     *ProposalService
	Sessions      *SessionService
	Wallets       *WalletService
	Notifications *NotificationService
}

// New wires every service.  A nil notifier drops notifications and a nil
// logger discards logs.
func New(store *repository.Store, notifier Notifier, logger *zap.Logger, opts Options) *Services {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CancelRefund == "" {
		opts.CancelRefund = RefundNone
	}
	c := &core{store: store, notifier: notifier, logger: logger, opts: opts}
	return &Services{
		Availability:  &AvailabilityService{core: c},
		Proposals:     &ProposalService{core: c},
		Sessions:      &SessionService{core: c},
		Wallets:       &WalletService{core: c},
		Notifications: &NotificationService{core: c},
	}
}

// core holds what every service shares.
type core struct {
	store    *repository.Store
	notifier Notifier
	logger   *zap.Logger
	opts     Options
}

// now is the service clock in UTC, truncated to the storage precision.
func (c *core) now() time.Time {
	return c.opts.Now().UTC().Truncate(time.Second)
}

func newID() string { return uuid.NewString() }

// message builds a notification for userID stamped with the service clock.
func (c *core) message(userID, typ, title, body, link, relatedID string) model.Notification {
	return model.Notification{
		ID:        newID(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   body,
		Link:      link,
		RelatedID: relatedID,
		CreatedAt: c.now(),
	}
}

// send delivers notifications.  Failures are logged and never returned:
// the operation that produced them has already committed.
func (c *core) send(ctx context.Context, msgs ...model.Notification) {
	for _, m := range msgs {
		if err := c.notifier.Notify(ctx, m); err != nil {
			c.logger.Warn("notification failed",
				zap.String("user_id", m.UserID),
				zap.String("type", m.Type),
				zap.Error(err))
		}
	}
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatMinutes(m int) string {
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

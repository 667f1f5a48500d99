package repository

import (
	"context"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type notificationRecord struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Type      string `db:"type"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	Link      string `db:"link"`
	RelatedID string `db:"related_id"`
	IsRead    bool   `db:"is_read"`
	CreatedAt dbTime `db:"created_at"`
}

const notificationColumns = `id, user_id, type, title, message, link, related_id, is_read, created_at`

// NotificationRepo persists in-app notifications.
type NotificationRepo struct{}

func (r *NotificationRepo) Create(ctx context.Context, q Querier, n *model.Notification) error {
	_, err := exec(ctx, q, `INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link, n.RelatedID, n.IsRead, ts(n.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ListByUser returns a user's notifications, newest first.  With
// unreadOnly set, read notifications are skipped.
func (r *NotificationRepo) ListByUser(ctx context.Context, q Querier, userID string, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC, id`
	var recs []notificationRecord
	if err := selectAll(ctx, q, &recs, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Notification{
			ID: r.ID, UserID: r.UserID, Type: r.Type, Title: r.Title, Message: r.Message,
			Link: r.Link, RelatedID: r.RelatedID, IsRead: r.IsRead, CreatedAt: r.CreatedAt.Time,
		})
	}
	return out, nil
}

// MarkRead flags a notification owned by userID as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, q Querier, id, userID string) error {
	n, err := exec(ctx, q, `UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package model

import "time"

// Notification types emitted by the scheduling core.
const (
	NotifyProposalCreated  = "proposal_created"
	NotifyProposalApproved = "proposal_approved"
	NotifyProposalRejected = "proposal_rejected"
	NotifySessionCompleted = "session_completed"
	NotifySessionPostponed = "session_postponed"
	NotifySessionMissed    = "session_missed"
	NotifySessionCancelled = "session_cancelled"
	NotifyAttendeeAdded    = "session_attendee_added"
	NotifyWalletCredited   = "wallet_credited"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID        string    `json:"id"`         // notifications.id
	UserID    string    `json:"user_id"`    // notifications.user_id
	Type      string    `json:"type"`       // notifications.type
	Title     string    `json:"title"`      // notifications.title
	Message   string    `json:"message"`    // notifications.message
	Link      string    `json:"link"`       // notifications.link
	RelatedID string    `json:"related_id"` // notifications.related_id
	IsRead    bool      `json:"is_read"`    // notifications.is_read
	CreatedAt time.Time `json:"created_at"` // notifications.created_at
}

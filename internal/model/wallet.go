package model

import "time"

const WalletActive = "active"

// HourWallet holds the purchased and consumed tutoring minutes of one
// student for one course.  Both counters only grow, except through an
// explicit refund correction.
type HourWallet struct {
	ID               string    `json:"id"`                // hour_wallets.id
	StudentID        string    `json:"student_id"`        // hour_wallets.student_id
	CourseID         string    `json:"course_id"`         // hour_wallets.course_id
	PurchasedMinutes int       `json:"purchased_minutes"` // hour_wallets.purchased_minutes
	ConsumedMinutes  int       `json:"consumed_minutes"`  // hour_wallets.consumed_minutes
	Status           string    `json:"status"`            // hour_wallets.status
	CreatedAt        time.Time `json:"created_at"`        // hour_wallets.created_at
	UpdatedAt        time.Time `json:"updated_at"`        // hour_wallets.updated_at
}

// Balance is purchased minus consumed minutes.
func (w HourWallet) Balance() int { return w.PurchasedMinutes - w.ConsumedMinutes }

type TransactionKind string

const (
	TxPurchase     TransactionKind = "purchase"
	TxReservation  TransactionKind = "reservation"
	TxNoShowCharge TransactionKind = "no_show_charge"
	TxRefund       TransactionKind = "refund"
)

// WalletTransaction is one entry of a wallet's history.  Minutes is the
// signed effect on the balance.
type WalletTransaction struct {
	ID        string          `json:"id"`                   // wallet_transactions.id
	WalletID  string          `json:"wallet_id"`            // wallet_transactions.wallet_id
	StudentID string          `json:"student_id"`           // wallet_transactions.student_id
	CourseID  string          `json:"course_id"`            // wallet_transactions.course_id
	Kind      TransactionKind `json:"kind"`                 // wallet_transactions.kind
	Minutes   int             `json:"minutes"`              // wallet_transactions.minutes
	SessionID *string         `json:"session_id,omitempty"` // wallet_transactions.session_id
	Note      string          `json:"note"`                 // wallet_transactions.note
	ActorID   *string         `json:"actor_id,omitempty"`   // wallet_transactions.actor_id
	CreatedAt time.Time       `json:"created_at"`           // wallet_transactions.created_at
}

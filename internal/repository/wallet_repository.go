package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

type walletRecord struct {
	ID               string `db:"id"`
	StudentID        string `db:"student_id"`
	CourseID         string `db:"course_id"`
	PurchasedMinutes int    `db:"purchased_minutes"`
	ConsumedMinutes  int    `db:"consumed_minutes"`
	Status           string `db:"status"`
	CreatedAt        dbTime `db:"created_at"`
	UpdatedAt        dbTime `db:"updated_at"`
}

func (r walletRecord) model() model.HourWallet {
	return model.HourWallet{
		ID:               r.ID,
		StudentID:        r.StudentID,
		CourseID:         r.CourseID,
		PurchasedMinutes: r.PurchasedMinutes,
		ConsumedMinutes:  r.ConsumedMinutes,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
	}
}

const walletColumns = `id, student_id, course_id, purchased_minutes, consumed_minutes, status, created_at, updated_at`

// WalletRepo manages hour_wallets and their wallet_transactions history.
//
// Balance changes are single conditional UPDATE statements.  Consume only
// succeeds while the balance covers the amount, so concurrent charges
// against one wallet can never drive it negative.
type WalletRepo struct{}

// Get returns the wallet of (studentID, courseID).  ErrNotFound when the
// student has never been credited for that course.
func (r *WalletRepo) Get(ctx context.Context, q Querier, studentID, courseID string) (*model.HourWallet, error) {
	var rec walletRecord
	if err := get(ctx, q, &rec, `SELECT `+walletColumns+` FROM hour_wallets WHERE student_id = ? AND course_id = ?`,
		studentID, courseID); err != nil {
		return nil, err
	}
	w := rec.model()
	return &w, nil
}

func (r *WalletRepo) GetByID(ctx context.Context, q Querier, id string) (*model.HourWallet, error) {
	var rec walletRecord
	if err := get(ctx, q, &rec, `SELECT `+walletColumns+` FROM hour_wallets WHERE id = ?`, id); err != nil {
		return nil, err
	}
	w := rec.model()
	return &w, nil
}

// List returns the wallets of studentID, or every wallet when studentID
// is empty.
func (r *WalletRepo) List(ctx context.Context, q Querier, studentID string) ([]model.HourWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM hour_wallets`
	var args []interface{}
	if studentID != "" {
		query += ` WHERE student_id = ?`
		args = append(args, studentID)
	}
	query += ` ORDER BY student_id, course_id`
	var recs []walletRecord
	if err := selectAll(ctx, q, &recs, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.HourWallet, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.model())
	}
	return out, nil
}

// AddPurchased credits minutes to the (studentID, courseID) wallet,
// creating it on first credit, and returns the updated wallet.
func (r *WalletRepo) AddPurchased(ctx context.Context, q Querier, studentID, courseID string, minutes int, now time.Time) (*model.HourWallet, error) {
	credit := func() (int64, error) {
		return exec(ctx, q, `UPDATE hour_wallets SET purchased_minutes = purchased_minutes + ?, updated_at = ?
			WHERE student_id = ? AND course_id = ?`, minutes, ts(now), studentID, courseID)
	}
	n, err := credit()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		_, err = exec(ctx, q, `INSERT INTO hour_wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), studentID, courseID, minutes, 0, model.WalletActive, ts(now), ts(now))
		if isUniqueViolation(err) {
			// lost the creation race; the row exists now
			_, err = credit()
		}
		if err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, q, studentID, courseID)
}

// Consume moves minutes from available to consumed.  ErrNoChange when the
// wallet's balance is below minutes.
func (r *WalletRepo) Consume(ctx context.Context, q Querier, walletID string, minutes int, now time.Time) error {
	n, err := exec(ctx, q, `UPDATE hour_wallets SET consumed_minutes = consumed_minutes + ?, updated_at = ?
		WHERE id = ? AND purchased_minutes - consumed_minutes >= ?`,
		minutes, ts(now), walletID, minutes)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

// Deduct adds minutes to consumed without looking at the balance.
// Callers that need a cap check it first or use Consume.
func (r *WalletRepo) Deduct(ctx context.Context, q Querier, walletID string, minutes int, now time.Time) error {
	n, err := exec(ctx, q, `UPDATE hour_wallets SET consumed_minutes = consumed_minutes + ?, updated_at = ? WHERE id = ?`,
		minutes, ts(now), walletID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Refund returns previously consumed minutes to the balance.  ErrNoChange
// when fewer than minutes were ever consumed.
func (r *WalletRepo) Refund(ctx context.Context, q Querier, walletID string, minutes int, now time.Time) error {
	n, err := exec(ctx, q, `UPDATE hour_wallets SET consumed_minutes = consumed_minutes - ?, updated_at = ?
		WHERE id = ? AND consumed_minutes >= ?`,
		minutes, ts(now), walletID, minutes)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

type walletTxRecord struct {
	ID        string         `db:"id"`
	WalletID  string         `db:"wallet_id"`
	StudentID string         `db:"student_id"`
	CourseID  string         `db:"course_id"`
	Kind      string         `db:"kind"`
	Minutes   int            `db:"minutes"`
	SessionID sql.NullString `db:"session_id"`
	Note      string         `db:"note"`
	ActorID   sql.NullString `db:"actor_id"`
	CreatedAt dbTime         `db:"created_at"`
}

const walletTxColumns = `id, wallet_id, student_id, course_id, kind, minutes, session_id, note, actor_id, created_at`

// InsertTransaction appends an entry to a wallet's history.
func (r *WalletRepo) InsertTransaction(ctx context.Context, q Querier, t *model.WalletTransaction) error {
	_, err := exec(ctx, q, `INSERT INTO wallet_transactions (`+walletTxColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WalletID, t.StudentID, t.CourseID, string(t.Kind), t.Minutes,
		nullStr(t.SessionID), t.Note, nullStr(t.ActorID), ts(t.CreatedAt))
	return err
}

// ListTransactions returns a wallet's history, oldest first.
func (r *WalletRepo) ListTransactions(ctx context.Context, q Querier, walletID string) ([]model.WalletTransaction, error) {
	var recs []walletTxRecord
	if err := selectAll(ctx, q, &recs, `SELECT `+walletTxColumns+` FROM wallet_transactions
		WHERE wallet_id = ? ORDER BY created_at, id`, walletID); err != nil {
		return nil, err
	}
	out := make([]model.WalletTransaction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.WalletTransaction{
			ID:        rec.ID,
			WalletID:  rec.WalletID,
			StudentID: rec.StudentID,
			CourseID:  rec.CourseID,
			Kind:      model.TransactionKind(rec.Kind),
			Minutes:   rec.Minutes,
			SessionID: strPtr(rec.SessionID),
			Note:      rec.Note,
			ActorID:   strPtr(rec.ActorID),
			CreatedAt: rec.CreatedAt.Time,
		})
	}
	return out, nil
}

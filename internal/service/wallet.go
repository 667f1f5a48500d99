package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

// allocationTolerance is how far, in hours, an allocation may drift from
// its stated total.
const allocationTolerance = 0.01

// WalletService exposes the hour-wallet ledger.
type WalletService struct {
	*core
}

// Balance returns purchased minus consumed minutes, zero when the student
// has no wallet for the course.
func (s *WalletService) Balance(ctx context.Context, studentID, courseID string) (int, error) {
	w, err := s.store.Wallets.Get(ctx, s.store.DB(), studentID, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "load wallet")
	}
	return w.Balance(), nil
}

// AddMinutes credits purchased minutes to a student's course wallet,
// creating the wallet on first credit.
func (s *WalletService) AddMinutes(ctx context.Context, actor model.Actor, studentID, courseID string, minutes int, note string) (*model.HourWallet, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	v := &ValidationError{}
	if studentID == "" {
		v.add("student_id", "is required")
	}
	if courseID == "" {
		v.add("course_id", "is required")
	}
	if minutes <= 0 {
		v.add("minutes", "must be greater than zero")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	now := s.now()
	var w *model.HourWallet
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.loadUser(ctx, tx, studentID, model.RoleStudent, "student"); err != nil {
			return err
		}
		if _, err := s.loadCourse(ctx, tx, courseID); err != nil {
			return err
		}
		var err error
		w, err = s.credit(ctx, tx, studentID, courseID, minutes, model.TxPurchase, nil, strOrNil(actor.UserID), note, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet credited",
		zap.String("wallet_id", w.ID),
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("minutes", minutes),
		zap.String("actor_id", actor.UserID))
	s.send(ctx, s.message(studentID, model.NotifyWalletCredited, "Tutoring minutes added",
		formatMinutes(minutes)+" were added to your wallet", "/wallets/"+w.ID, w.ID))
	return w, nil
}

// AllocateInput splits a purchase of TotalHours across courses.
type AllocateInput struct {
	StudentID   string
	TotalHours  float64
	Allocations map[string]float64
	Note        string
}

// Allocate credits several course wallets of one student in a single
// transaction.  The per-course hours must add up to TotalHours.
func (s *WalletService) Allocate(ctx context.Context, actor model.Actor, in AllocateInput) ([]model.HourWallet, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	v := &ValidationError{}
	if in.StudentID == "" {
		v.add("student_id", "is required")
	}
	if in.TotalHours <= 0 {
		v.add("total_hours", "must be greater than zero")
	}
	if len(in.Allocations) == 0 {
		v.add("allocations", "is required")
	}
	courses := make([]string, 0, len(in.Allocations))
	sum := 0.0
	for courseID, hours := range in.Allocations {
		if hours <= 0 {
			v.add("allocations", "every allocation must be greater than zero")
		}
		sum += hours
		courses = append(courses, courseID)
	}
	if len(in.Allocations) > 0 && math.Abs(sum-in.TotalHours) >= allocationTolerance {
		v.add("allocations", "must add up to total_hours")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}
	sort.Strings(courses)

	now := s.now()
	wallets := make([]model.HourWallet, 0, len(courses))
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.loadUser(ctx, tx, in.StudentID, model.RoleStudent, "student"); err != nil {
			return err
		}
		for _, courseID := range courses {
			if _, err := s.loadCourse(ctx, tx, courseID); err != nil {
				return err
			}
			minutes := int(math.Round(in.Allocations[courseID] * 60))
			w, err := s.credit(ctx, tx, in.StudentID, courseID, minutes, model.TxPurchase, nil, strOrNil(actor.UserID), in.Note, now)
			if err != nil {
				return err
			}
			wallets = append(wallets, *w)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("hours allocated",
		zap.String("student_id", in.StudentID),
		zap.Float64("total_hours", in.TotalHours),
		zap.Int("courses", len(courses)),
		zap.String("actor_id", actor.UserID))
	s.send(ctx, s.message(in.StudentID, model.NotifyWalletCredited, "Tutoring hours allocated",
		formatMinutes(int(math.Round(in.TotalHours*60)))+" were allocated across your courses", "/wallets", ""))
	return wallets, nil
}

// GetWallet returns one wallet.  Students only see their own.
func (s *WalletService) GetWallet(ctx context.Context, actor model.Actor, id string) (*model.HourWallet, error) {
	w, err := s.store.Wallets.GetByID(ctx, s.store.DB(), id)
	if err != nil {
		return nil, lookup(err, "wallet")
	}
	if err := canSeeWallets(actor, w.StudentID); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWallets lists the wallets of studentID.  Students may omit it to
// list their own; managers and admins may omit it to list every wallet.
func (s *WalletService) ListWallets(ctx context.Context, actor model.Actor, studentID string) ([]model.HourWallet, error) {
	if studentID == "" {
		switch {
		case actor.Role == model.RoleStudent:
			studentID = actor.UserID
		case actor.Role.IsStaff():
		default:
			return nil, invalid("student_id", "is required")
		}
	}
	if studentID != "" {
		if err := canSeeWallets(actor, studentID); err != nil {
			return nil, err
		}
	}
	ws, err := s.store.Wallets.List(ctx, s.store.DB(), studentID)
	if err != nil {
		return nil, errors.Wrap(err, "list wallets")
	}
	return ws, nil
}

// ListTransactions returns the history of a wallet, oldest first.
func (s *WalletService) ListTransactions(ctx context.Context, actor model.Actor, walletID string) ([]model.WalletTransaction, error) {
	if _, err := s.GetWallet(ctx, actor, walletID); err != nil {
		return nil, err
	}
	txs, err := s.store.Wallets.ListTransactions(ctx, s.store.DB(), walletID)
	if err != nil {
		return nil, errors.Wrap(err, "list wallet transactions")
	}
	return txs, nil
}

func canSeeWallets(actor model.Actor, studentID string) error {
	switch actor.Role {
	case model.RoleStudent:
		if actor.UserID != studentID {
			return errors.Wrap(ErrForbidden, "wallet belongs to another student")
		}
	case model.RoleParent, model.RoleTutor, model.RoleManager, model.RoleAdmin:
	default:
		return ErrForbidden
	}
	return nil
}

// credit increments purchased (or, for refunds, decrements consumed) and
// records the transaction.
func (c *core) credit(ctx context.Context, tx *sqlx.Tx, studentID, courseID string, minutes int, kind model.TransactionKind, sessionID, actorID *string, note string, now time.Time) (*model.HourWallet, error) {
	var w *model.HourWallet
	var err error
	if kind == model.TxRefund {
		w, err = c.store.Wallets.Get(ctx, tx, studentID, courseID)
		if err != nil {
			return nil, lookup(err, "wallet")
		}
		if err := c.store.Wallets.Refund(ctx, tx, w.ID, minutes, now); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				return nil, errors.Wrap(ErrInvalidState, "refund exceeds consumed minutes")
			}
			return nil, errors.Wrap(err, "refund minutes")
		}
	} else {
		w, err = c.store.Wallets.AddPurchased(ctx, tx, studentID, courseID, minutes, now)
		if err != nil {
			return nil, errors.Wrap(err, "credit wallet")
		}
	}
	if err := c.record(ctx, tx, w, kind, minutes, sessionID, actorID, note, now); err != nil {
		return nil, err
	}
	if kind == model.TxRefund {
		return c.store.Wallets.GetByID(ctx, tx, w.ID)
	}
	return w, nil
}

// reserve takes minutes from the wallet for a join.  The balance check
// and the deduction are one conditional statement, so two concurrent
// reservations can never overdraw the wallet.
func (c *core) reserve(ctx context.Context, tx *sqlx.Tx, studentID, courseID string, minutes int, sessionID string, now time.Time) error {
	w, err := c.store.Wallets.Get(ctx, tx, studentID, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return insufficient(minutes, 0)
	}
	if err != nil {
		return errors.Wrap(err, "load wallet")
	}
	if err := c.store.Wallets.Consume(ctx, tx, w.ID, minutes, now); err != nil {
		if errors.Is(err, repository.ErrNoChange) {
			if cur, err := c.store.Wallets.GetByID(ctx, tx, w.ID); err == nil {
				w = cur
			}
			return insufficient(minutes, w.Balance())
		}
		return errors.Wrap(err, "reserve minutes")
	}
	return c.record(ctx, tx, w, model.TxReservation, -minutes, &sessionID, nil, "reserved at join", now)
}

// deduct increments consumed on an existing wallet without a balance
// check.  ErrNotFound when the student has no wallet for the course.
func (c *core) deduct(ctx context.Context, tx *sqlx.Tx, studentID, courseID string, minutes int, kind model.TransactionKind, sessionID, note string, now time.Time) error {
	w, err := c.store.Wallets.Get(ctx, tx, studentID, courseID)
	if err != nil {
		return lookup(err, "wallet")
	}
	if err := c.store.Wallets.Deduct(ctx, tx, w.ID, minutes, now); err != nil {
		return errors.Wrap(err, "deduct minutes")
	}
	return c.record(ctx, tx, w, kind, -minutes, strOrNil(sessionID), nil, note, now)
}

// chargeNoShow bills a late postponement.  The charge is capped at the
// balance; the uncovered part is logged and dropped.  It returns the
// minutes actually charged.
func (c *core) chargeNoShow(ctx context.Context, tx *sqlx.Tx, studentID, courseID string, charge int, sessionID string, now time.Time) (int, error) {
	balance := 0
	w, err := c.store.Wallets.Get(ctx, tx, studentID, courseID)
	switch {
	case err == nil:
		balance = w.Balance()
	case !errors.Is(err, repository.ErrNotFound):
		return 0, errors.Wrap(err, "load wallet")
	}
	amount := charge
	if amount > balance {
		amount = balance
	}
	if amount < 0 {
		amount = 0
	}
	if amount < charge {
		c.logger.Warn("no-show charge exceeds balance",
			zap.String("session_id", sessionID),
			zap.String("student_id", studentID),
			zap.Int("charge", charge),
			zap.Int("balance", balance),
			zap.Int("shortfall", charge-amount))
	}
	if amount == 0 {
		return 0, nil
	}
	if err := c.deduct(ctx, tx, studentID, courseID, amount, model.TxNoShowCharge, sessionID, "late postponement", now); err != nil {
		return 0, err
	}
	return amount, nil
}

func (c *core) record(ctx context.Context, tx *sqlx.Tx, w *model.HourWallet, kind model.TransactionKind, minutes int, sessionID, actorID *string, note string, now time.Time) error {
	err := c.store.Wallets.InsertTransaction(ctx, tx, &model.WalletTransaction{
		ID:        newID(),
		WalletID:  w.ID,
		StudentID: w.StudentID,
		CourseID:  w.CourseID,
		Kind:      kind,
		Minutes:   minutes,
		SessionID: sessionID,
		Note:      note,
		ActorID:   actorID,
		CreatedAt: now,
	})
	return errors.Wrap(err, "record wallet transaction")
}

package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

const (
	// lateJoinGrace is how long after the scheduled start a tutor may
	// join without being flagged late.
	lateJoinGrace = 10 * time.Minute
	// postponeCutoff is the notice below which a postponement counts as
	// a no-show.
	postponeCutoff = 120 * time.Minute
)

// noShowCharge is half the scheduled minutes, rounded up.
func noShowCharge(scheduled int) int { return (scheduled + 1) / 2 }

// SessionService drives the tutoring session state machine.
type SessionService struct {
	*core
}

// Get returns a session to a participant, manager or admin.
func (s *SessionService) Get(ctx context.Context, actor model.Actor, id string) (*model.TutoringSession, error) {
	db := s.store.DB()
	sess, err := s.store.Sessions.GetByID(ctx, db, id)
	if err != nil {
		return nil, lookup(err, "session")
	}
	if actor.Role.IsStaff() {
		return sess, nil
	}
	role, _, err := s.sessionRole(ctx, db, actor, sess)
	if err != nil {
		return nil, err
	}
	if role == RoleNone {
		return nil, errors.Wrap(ErrForbidden, "not a participant")
	}
	return sess, nil
}

// ListFilter narrows List.  UserID is honoured for managers and admins
// only; everyone else sees their own sessions.
type ListFilter struct {
	UserID string
	Status model.SessionStatus
	From   *time.Time
	To     *time.Time
}

func (s *SessionService) List(ctx context.Context, actor model.Actor, f ListFilter) ([]model.TutoringSession, error) {
	switch f.Status {
	case "", model.SessionScheduled, model.SessionInProgress, model.SessionCompleted,
		model.SessionPostponed, model.SessionMissed, model.SessionCancelled:
	default:
		return nil, invalid("status", "is not a session status")
	}
	userID := actor.UserID
	if actor.Role.IsStaff() {
		userID = f.UserID
	}
	out, err := s.store.Sessions.List(ctx, s.store.DB(), repository.SessionFilter{
		UserID: userID,
		Status: f.Status,
		From:   f.From,
		To:     f.To,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	return out, nil
}

// Join records the caller joining the session.  A student's first join
// reserves the full scheduled minutes from their wallet; later joins
// return the session unchanged.  The session starts once the tutor and,
// for 1:1 sessions, the student have joined.
func (s *SessionService) Join(ctx context.Context, actor model.Actor, id string) (*model.TutoringSession, error) {
	now := s.now()
	var role SessionRole
	reserved := 0
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		sess, err := s.store.Sessions.GetByID(ctx, tx, id)
		if err != nil {
			return lookup(err, "session")
		}
		var att *model.SessionAttendance
		role, att, err = s.sessionRole(ctx, tx, actor, sess)
		if err != nil {
			return err
		}
		if role == RoleNone {
			return errors.Wrap(ErrForbidden, "not a participant")
		}
		if sess.Status != model.SessionScheduled && sess.Status != model.SessionInProgress {
			return errors.Wrapf(ErrInvalidState, "session is %s", sess.Status)
		}
		minutes := sess.ScheduledMinutes
		if minutes <= 0 {
			minutes = model.WindowMinutes(sess.ScheduledStart, sess.ScheduledEnd)
		}

		switch role {
		case RoleStudent1to1:
			// The marker and the deduction commit together: a failed
			// deduction rolls the marker back.
			err := s.store.Sessions.ReserveStudent(ctx, tx, id, minutes, now)
			if errors.Is(err, repository.ErrNoChange) {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "mark student joined")
			}
			if err := s.reserve(ctx, tx, actor.UserID, sess.CourseID, minutes, id, now); err != nil {
				return err
			}
			reserved = minutes
		case RoleGroupAttendee:
			if att.ReservedMinutes > 0 {
				return nil
			}
			err := s.store.Attendance.Reserve(ctx, tx, id, actor.UserID, minutes, now)
			if errors.Is(err, repository.ErrNoChange) {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "mark attendee joined")
			}
			if err := s.reserve(ctx, tx, actor.UserID, sess.CourseID, minutes, id, now); err != nil {
				return err
			}
			reserved = minutes
		case RoleTutor:
			late := now.After(sess.ScheduledStart.Add(lateJoinGrace))
			err := s.store.Sessions.MarkTutorJoined(ctx, tx, id, now, late)
			if err != nil && !errors.Is(err, repository.ErrNoChange) {
				return errors.Wrap(err, "mark tutor joined")
			}
		}

		if sess.Status == model.SessionScheduled {
			if _, err := s.store.Sessions.Start(ctx, tx, id, now, !sess.IsGroupSession); err != nil {
				return errors.Wrap(err, "start session")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session joined",
		zap.String("session_id", id),
		zap.String("user_id", actor.UserID),
		zap.Stringer("as", role),
		zap.Int("reserved_minutes", reserved))
	return s.reload(ctx, id)
}

// End completes an in-progress session.  Billable minutes are the
// elapsed minutes capped at the schedule; the wallet is not touched
// because minutes were reserved at join.
func (s *SessionService) End(ctx context.Context, actor model.Actor, id string) (*model.TutoringSession, error) {
	now := s.now()
	var out []model.Notification
	billable := 0
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		sess, err := s.participant(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionInProgress {
			return errors.Wrapf(ErrInvalidState, "session is %s", sess.Status)
		}
		started := sess.ScheduledStart
		if sess.ActualStartTime != nil {
			started = *sess.ActualStartTime
		}
		billable = model.CeilMinutes(now.Sub(started))
		if billable > sess.ScheduledMinutes {
			billable = sess.ScheduledMinutes
		}
		if err := s.store.Sessions.Complete(ctx, tx, id, now, billable); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				return errors.Wrap(ErrInvalidState, "session is no longer in progress")
			}
			return errors.Wrap(err, "complete session")
		}

		var attendees []model.SessionAttendance
		if sess.IsGroupSession {
			attendees, err = s.store.Attendance.ListBySession(ctx, tx, id)
			if err != nil {
				return errors.Wrap(err, "list attendance")
			}
			for _, a := range attendees {
				if a.JoinTime == nil || a.LeaveTime != nil {
					continue
				}
				consumed := model.CeilMinutes(now.Sub(*a.JoinTime))
				if consumed > a.ReservedMinutes {
					consumed = a.ReservedMinutes
				}
				if err := s.store.Attendance.Leave(ctx, tx, id, a.StudentID, now, consumed); err != nil &&
					!errors.Is(err, repository.ErrNoChange) {
					return errors.Wrap(err, "close attendance")
				}
			}
		}
		for _, uid := range others(sess, attendees, actor.UserID) {
			out = append(out, s.message(uid, model.NotifySessionCompleted, "Session completed",
				"Your session was completed with "+formatMinutes(billable)+" billed", "/sessions/"+id, id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session completed",
		zap.String("session_id", id),
		zap.String("user_id", actor.UserID),
		zap.Int("billable_minutes", billable))
	s.send(ctx, out...)
	return s.reload(ctx, id)
}

// Postpone moves a scheduled session out of the calendar.  With less than
// two hours' notice it becomes missed and every affected student is
// charged half the scheduled minutes, rounded up.
func (s *SessionService) Postpone(ctx context.Context, actor model.Actor, id string, reason *string) (*model.TutoringSession, error) {
	now := s.now()
	var out []model.Notification
	var status model.SessionStatus
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		sess, err := s.participant(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionScheduled {
			return errors.Wrapf(ErrInvalidState, "session is %s", sess.Status)
		}
		var attendees []model.SessionAttendance
		if sess.IsGroupSession {
			if attendees, err = s.store.Attendance.ListBySession(ctx, tx, id); err != nil {
				return errors.Wrap(err, "list attendance")
			}
		}

		status = model.SessionPostponed
		charge := 0
		if sess.ScheduledStart.Sub(now) < postponeCutoff {
			status, charge = model.SessionMissed, noShowCharge(sess.ScheduledMinutes)
		}
		if err := s.store.Sessions.Transition(ctx, tx, id, []model.SessionStatus{model.SessionScheduled},
			status, charge, reason, now); err != nil {
			return transitionErr(err)
		}

		if status == model.SessionMissed {
			if err := s.chargeMissed(ctx, tx, sess, attendees, charge, now); err != nil {
				return err
			}
		}

		typ, title, body := model.NotifySessionPostponed, "Session postponed", "Your session was postponed"
		if status == model.SessionMissed {
			typ, title = model.NotifySessionMissed, "Session missed"
			body = "Your session was postponed too late and is marked missed"
		}
		for _, uid := range others(sess, attendees, actor.UserID) {
			out = append(out, s.message(uid, typ, title, body, "/sessions/"+id, id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session postponed",
		zap.String("session_id", id),
		zap.String("user_id", actor.UserID),
		zap.String("status", string(status)))
	s.send(ctx, out...)
	return s.reload(ctx, id)
}

// chargeMissed bills every affected student of a missed session.  A
// student who already reserved minutes at join is covered by that
// reservation and is not charged again.
func (s *SessionService) chargeMissed(ctx context.Context, tx *sqlx.Tx, sess *model.TutoringSession, attendees []model.SessionAttendance, charge int, now time.Time) error {
	if !sess.IsGroupSession {
		if sess.StudentID == nil || sess.ReservedMinutes > 0 {
			return nil
		}
		_, err := s.chargeNoShow(ctx, tx, *sess.StudentID, sess.CourseID, charge, sess.ID, now)
		return err
	}
	for _, a := range attendees {
		if a.ReservedMinutes > 0 {
			continue
		}
		charged, err := s.chargeNoShow(ctx, tx, a.StudentID, sess.CourseID, charge, sess.ID, now)
		if err != nil {
			return err
		}
		if err := s.store.Attendance.SetConsumed(ctx, tx, sess.ID, a.StudentID, charged); err != nil {
			return errors.Wrap(err, "record no-show charge")
		}
	}
	return nil
}

// Cancel cancels a scheduled or in-progress session without charging.
// Whether reservations are returned depends on the refund policy.
func (s *SessionService) Cancel(ctx context.Context, actor model.Actor, id string, reason *string) (*model.TutoringSession, error) {
	now := s.now()
	var out []model.Notification
	refunded := 0
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		sess, err := s.participant(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionScheduled && sess.Status != model.SessionInProgress {
			return errors.Wrapf(ErrInvalidState, "session is %s", sess.Status)
		}
		if err := s.store.Sessions.Transition(ctx, tx, id, []model.SessionStatus{sess.Status},
			model.SessionCancelled, sess.BillableMinutes, reason, now); err != nil {
			return transitionErr(err)
		}

		var attendees []model.SessionAttendance
		if sess.IsGroupSession {
			if attendees, err = s.store.Attendance.ListBySession(ctx, tx, id); err != nil {
				return errors.Wrap(err, "list attendance")
			}
		}
		if s.opts.CancelRefund == RefundUnstarted && sess.Status == model.SessionScheduled {
			if refunded, err = s.refundReservations(ctx, tx, sess, attendees, now); err != nil {
				return err
			}
		}
		for _, uid := range others(sess, attendees, actor.UserID) {
			out = append(out, s.message(uid, model.NotifySessionCancelled, "Session cancelled",
				"Your session on "+sess.ScheduledStart.Format(time.RFC1123)+" was cancelled", "/sessions/"+id, id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session cancelled",
		zap.String("session_id", id),
		zap.String("user_id", actor.UserID),
		zap.Int("refunded_minutes", refunded))
	s.send(ctx, out...)
	return s.reload(ctx, id)
}

func (s *SessionService) refundReservations(ctx context.Context, tx *sqlx.Tx, sess *model.TutoringSession, attendees []model.SessionAttendance, now time.Time) (int, error) {
	total := 0
	refund := func(studentID string, minutes int) error {
		if minutes <= 0 {
			return nil
		}
		if _, err := s.credit(ctx, tx, studentID, sess.CourseID, minutes, model.TxRefund, &sess.ID, nil, "session cancelled before start", now); err != nil {
			return err
		}
		total += minutes
		return nil
	}
	if !sess.IsGroupSession {
		if sess.StudentID != nil {
			if err := refund(*sess.StudentID, sess.ReservedMinutes); err != nil {
				return 0, err
			}
		}
		return total, nil
	}
	for _, a := range attendees {
		if err := refund(a.StudentID, a.ReservedMinutes); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// participant loads a session for a state change by actor.  Group
// sessions accept only their tutor.
func (s *SessionService) participant(ctx context.Context, q repository.Querier, actor model.Actor, id string) (*model.TutoringSession, error) {
	sess, err := s.store.Sessions.GetByID(ctx, q, id)
	if err != nil {
		return nil, lookup(err, "session")
	}
	role, _, err := s.sessionRole(ctx, q, actor, sess)
	if err != nil {
		return nil, err
	}
	if role == RoleNone {
		return nil, errors.Wrap(ErrForbidden, "not a participant")
	}
	if sess.IsGroupSession && role != RoleTutor {
		return nil, errors.Wrap(ErrForbidden, "only the tutor can do this for a group session")
	}
	return sess, nil
}

func (s *SessionService) reload(ctx context.Context, id string) (*model.TutoringSession, error) {
	sess, err := s.store.Sessions.GetByID(ctx, s.store.DB(), id)
	if err != nil {
		return nil, lookup(err, "session")
	}
	return sess, nil
}

func transitionErr(err error) error {
	if errors.Is(err, repository.ErrNoChange) {
		return errors.Wrap(ErrInvalidState, "session changed state concurrently")
	}
	return errors.Wrap(err, "update session status")
}

// others lists everyone in the session except userID: the tutor, the 1:1
// student and every registered attendee.
func others(sess *model.TutoringSession, attendees []model.SessionAttendance, userID string) []string {
	var ids []string
	add := func(id string) {
		if id != "" && id != userID {
			ids = append(ids, id)
		}
	}
	add(sess.TutorID)
	if sess.StudentID != nil {
		add(*sess.StudentID)
	}
	for _, a := range attendees {
		add(a.StudentID)
	}
	return ids
}

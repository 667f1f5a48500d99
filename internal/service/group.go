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

// GroupSessionInput describes a new group session.  TutorID defaults to
// the caller.
type GroupSessionInput struct {
	TutorID  string
	CourseID string
	Start    time.Time
	End      time.Time
	Notes    string
}

// CreateGroup schedules a group session.  Tutors create their own;
// managers and admins may create one for any tutor.
func (s *SessionService) CreateGroup(ctx context.Context, actor model.Actor, in GroupSessionInput) (*model.TutoringSession, error) {
	if in.TutorID == "" {
		in.TutorID = actor.UserID
	}
	switch {
	case actor.Role.IsStaff():
	case actor.Role == model.RoleTutor && in.TutorID == actor.UserID:
	default:
		return nil, errors.Wrap(ErrForbidden, "only the tutor or staff can schedule group sessions")
	}
	v := checkWindow(in.Start, in.End, "start", "end")
	if in.CourseID == "" {
		v.add("course_id", "is required")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}
	start, end := in.Start.UTC(), in.End.UTC()
	now := s.now()
	sess := &model.TutoringSession{
		ID:               newID(),
		TutorID:          in.TutorID,
		CourseID:         in.CourseID,
		ScheduledStart:   start,
		ScheduledEnd:     end,
		ScheduledMinutes: model.WindowMinutes(start, end),
		Status:           model.SessionScheduled,
		IsGroupSession:   true,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.loadUser(ctx, tx, in.TutorID, model.RoleTutor, "tutor"); err != nil {
			return err
		}
		if _, err := s.loadCourse(ctx, tx, in.CourseID); err != nil {
			return err
		}
		if err := s.overlapCheck(ctx, tx, in.TutorID, start, end, ""); err != nil {
			return err
		}
		return errors.Wrap(s.store.Sessions.Create(ctx, tx, sess), "create session")
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("group session created",
		zap.String("session_id", sess.ID),
		zap.String("tutor_id", sess.TutorID),
		zap.Int("scheduled_minutes", sess.ScheduledMinutes))
	return sess, nil
}

// RegisterAttendee adds a student to a scheduled group session.
func (s *SessionService) RegisterAttendee(ctx context.Context, actor model.Actor, sessionID, studentID string) (*model.SessionAttendance, error) {
	if studentID == "" {
		return nil, invalid("student_id", "is required")
	}
	now := s.now()
	var att *model.SessionAttendance
	var sess *model.TutoringSession
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		sess, err = s.store.Sessions.GetByID(ctx, tx, sessionID)
		if err != nil {
			return lookup(err, "session")
		}
		if sess.TutorID != actor.UserID && !actor.Role.IsStaff() {
			return errors.Wrap(ErrForbidden, "only the tutor or staff can register attendees")
		}
		if !sess.IsGroupSession {
			return errors.Wrap(ErrInvalidState, "not a group session")
		}
		if sess.Status != model.SessionScheduled {
			return errors.Wrapf(ErrInvalidState, "session is %s", sess.Status)
		}
		if _, err := s.loadUser(ctx, tx, studentID, model.RoleStudent, "student"); err != nil {
			return err
		}
		att = &model.SessionAttendance{
			ID:        newID(),
			SessionID: sessionID,
			StudentID: studentID,
			CreatedAt: now,
		}
		if err := s.store.Attendance.Register(ctx, tx, att); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errors.Wrap(ErrConflict, "student is already registered")
			}
			return errors.Wrap(err, "register attendee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendee registered", zap.String("session_id", sessionID), zap.String("student_id", studentID))
	s.send(ctx, s.message(studentID, model.NotifyAttendeeAdded, "Group session booked",
		"You were registered for a group session on "+sess.ScheduledStart.Format(time.RFC1123), "/sessions/"+sessionID, sessionID))
	return att, nil
}

// ListAttendance returns the attendance rows of a group session to its
// tutor, managers and admins.
func (s *SessionService) ListAttendance(ctx context.Context, actor model.Actor, sessionID string) ([]model.SessionAttendance, error) {
	db := s.store.DB()
	sess, err := s.store.Sessions.GetByID(ctx, db, sessionID)
	if err != nil {
		return nil, lookup(err, "session")
	}
	if sess.TutorID != actor.UserID && !actor.Role.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "only the tutor or staff can see attendance")
	}
	out, err := s.store.Attendance.ListBySession(ctx, db, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list attendance")
	}
	return out, nil
}

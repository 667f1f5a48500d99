package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

// SessionRole is the part an actor plays in one tutoring session.
type SessionRole int

const (
	RoleNone SessionRole = iota
	RoleTutor
	RoleStudent1to1
	RoleGroupAttendee
)

func (r SessionRole) String() string {
	switch r {
	case RoleTutor:
		return "tutor"
	case RoleStudent1to1:
		return "student"
	case RoleGroupAttendee:
		return "attendee"
	}
	return "none"
}

// sessionRole resolves what actor is to s.  For group attendees the
// attendance row is returned as well.
func (c *core) sessionRole(ctx context.Context, q repository.Querier, actor model.Actor, s *model.TutoringSession) (SessionRole, *model.SessionAttendance, error) {
	if actor.UserID == "" {
		return RoleNone, nil, nil
	}
	if actor.UserID == s.TutorID {
		return RoleTutor, nil, nil
	}
	if !s.IsGroupSession {
		if s.StudentID != nil && *s.StudentID == actor.UserID {
			return RoleStudent1to1, nil, nil
		}
		return RoleNone, nil, nil
	}
	att, err := c.store.Attendance.Get(ctx, q, s.ID, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return RoleNone, nil, nil
	}
	if err != nil {
		return RoleNone, nil, errors.Wrap(err, "load attendance")
	}
	return RoleGroupAttendee, att, nil
}

func requireStaff(actor model.Actor) error {
	if !actor.Role.IsStaff() {
		return errors.Wrap(ErrForbidden, "requires a manager or admin")
	}
	return nil
}

// loadUser fetches a user and checks its role.  A user with another role
// is reported as missing.
func (c *core) loadUser(ctx context.Context, q repository.Querier, id string, role model.Role, what string) (*model.User, error) {
	u, err := c.store.Users.GetByID(ctx, q, id)
	if err != nil {
		return nil, lookup(err, what)
	}
	if u.Role != role {
		return nil, errors.Wrap(ErrNotFound, what)
	}
	return u, nil
}

func (c *core) loadCourse(ctx context.Context, q repository.Querier, id string) (*model.Course, error) {
	course, err := c.store.Courses.GetByID(ctx, q, id)
	if err != nil {
		return nil, lookup(err, "course")
	}
	return course, nil
}

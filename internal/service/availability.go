package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
)

// AvailabilityService manages tutors' recurring weekly windows.
type AvailabilityService struct {
	*core
}

// AvailabilityInput describes a window.  Nil flags default to true.
type AvailabilityInput struct {
	DayOfWeek   int
	StartTime   string
	EndTime     string
	IsRecurring *bool
	IsActive    *bool
}

func (in AvailabilityInput) validate() error {
	v := &ValidationError{}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		v.add("day_of_week", "must be between 0 and 6")
	}
	from, ok := model.ClockMinutes(in.StartTime)
	if !ok {
		v.add("start_time", "must be HH:MM")
	}
	to, ok2 := model.ClockMinutes(in.EndTime)
	if !ok2 {
		v.add("end_time", "must be HH:MM")
	}
	if ok && ok2 && to <= from {
		v.add("end_time", "must be after start_time")
	}
	return v.orNil()
}

func flag(b *bool) bool { return b == nil || *b }

// Create publishes a window for the calling tutor.
func (s *AvailabilityService) Create(ctx context.Context, actor model.Actor, in AvailabilityInput) (*model.TutorAvailability, error) {
	if actor.Role != model.RoleTutor {
		return nil, errors.Wrap(ErrForbidden, "only tutors publish availability")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	a := &model.TutorAvailability{
		ID:          newID(),
		TutorID:     actor.UserID,
		DayOfWeek:   in.DayOfWeek,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsRecurring: flag(in.IsRecurring),
		IsActive:    flag(in.IsActive),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Availability.Create(ctx, s.store.DB(), a); err != nil {
		return nil, errors.Wrap(err, "create availability")
	}
	s.logger.Info("availability created", zap.String("availability_id", a.ID), zap.String("tutor_id", a.TutorID))
	return a, nil
}

// ListByTutor returns a tutor's windows.
func (s *AvailabilityService) ListByTutor(ctx context.Context, tutorID string, activeOnly bool) ([]model.TutorAvailability, error) {
	out, err := s.store.Availability.ListByTutor(ctx, s.store.DB(), tutorID, activeOnly)
	if err != nil {
		return nil, errors.Wrap(err, "list availability")
	}
	return out, nil
}

// Update replaces a window owned by the calling tutor.
func (s *AvailabilityService) Update(ctx context.Context, actor model.Actor, id string, in AvailabilityInput) (*model.TutorAvailability, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	a.DayOfWeek = in.DayOfWeek
	a.StartTime = in.StartTime
	a.EndTime = in.EndTime
	a.IsRecurring = flag(in.IsRecurring)
	a.IsActive = flag(in.IsActive)
	a.UpdatedAt = s.now()
	if err := s.store.Availability.Update(ctx, s.store.DB(), a); err != nil {
		return nil, lookup(err, "availability")
	}
	return a, nil
}

// Delete removes a window owned by the calling tutor.
func (s *AvailabilityService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Availability.Delete(ctx, s.store.DB(), id, actor.UserID); err != nil {
		return lookup(err, "availability")
	}
	s.logger.Info("availability deleted", zap.String("availability_id", id), zap.String("tutor_id", actor.UserID))
	return nil
}

func (s *AvailabilityService) owned(ctx context.Context, actor model.Actor, id string) (*model.TutorAvailability, error) {
	a, err := s.store.Availability.GetByID(ctx, s.store.DB(), id)
	if err != nil {
		return nil, lookup(err, "availability")
	}
	if a.TutorID != actor.UserID {
		return nil, errors.Wrap(ErrForbidden, "availability belongs to another tutor")
	}
	return a, nil
}

// fits reports whether [start, end) lies inside one of the tutor's active
// windows.  A tutor without any active window accepts every slot.
func (c *core) fits(ctx context.Context, q repository.Querier, tutorID string, start, end time.Time) (bool, error) {
	windows, err := c.store.Availability.ListByTutor(ctx, q, tutorID, true)
	if err != nil {
		return false, errors.Wrap(err, "list availability")
	}
	if len(windows) == 0 {
		return true, nil
	}
	for _, w := range windows {
		if w.Covers(start, end) {
			return true, nil
		}
	}
	return false, nil
}

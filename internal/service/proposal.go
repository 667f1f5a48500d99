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

// slotGranularity is the unit every session length must be a multiple of.
const slotGranularity = 15 * time.Minute

// ProposalService runs the student-proposes, tutor-decides workflow.
type ProposalService struct {
	*core
}

// ProposeInput is a student's request for a 1:1 session.
type ProposeInput struct {
	TutorID  string
	CourseID string
	Start    time.Time
	End      time.Time
}

// checkWindow validates a session window; startField and endField name
// the offending inputs.
func checkWindow(start, end time.Time, startField, endField string) *ValidationError {
	v := &ValidationError{}
	if start.IsZero() {
		v.add(startField, "is required")
	}
	if end.IsZero() {
		v.add(endField, "is required")
	}
	if !start.IsZero() && !end.IsZero() {
		d := end.Sub(start)
		if d <= 0 || d%slotGranularity != 0 {
			v.add(endField, "duration must be a positive multiple of 15 minutes")
		}
	}
	return v
}

// overlapCheck fails with ErrConflict when the tutor is already booked
// in [start, end).
func (c *core) overlapCheck(ctx context.Context, q repository.Querier, tutorID string, start, end time.Time, excludeID string) error {
	busy, err := c.store.Sessions.HasOverlap(ctx, q, tutorID, start, end, excludeID)
	if err != nil {
		return errors.Wrap(err, "check tutor schedule")
	}
	if busy {
		return errors.Wrap(ErrConflict, "tutor already has a session in that window")
	}
	return nil
}

// Propose files a pending proposal from the calling student.
func (s *ProposalService) Propose(ctx context.Context, actor model.Actor, in ProposeInput) (*model.SessionProposal, error) {
	if actor.Role != model.RoleStudent {
		return nil, errors.Wrap(ErrForbidden, "only students propose sessions")
	}
	v := checkWindow(in.Start, in.End, "proposed_start", "proposed_end")
	if in.TutorID == "" {
		v.add("tutor_id", "is required")
	}
	if in.CourseID == "" {
		v.add("course_id", "is required")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}
	start, end := in.Start.UTC(), in.End.UTC()

	db := s.store.DB()
	if _, err := s.loadUser(ctx, db, in.TutorID, model.RoleTutor, "tutor"); err != nil {
		return nil, err
	}
	if _, err := s.loadCourse(ctx, db, in.CourseID); err != nil {
		return nil, err
	}
	if s.opts.EnforceAvailability {
		ok, err := s.fits(ctx, db, in.TutorID, start, end)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid("proposed_start", "is outside the tutor's availability")
		}
	}
	if err := s.overlapCheck(ctx, db, in.TutorID, start, end, ""); err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.SessionProposal{
		ID:            newID(),
		StudentID:     actor.UserID,
		TutorID:       in.TutorID,
		CourseID:      in.CourseID,
		ProposedStart: start,
		ProposedEnd:   end,
		Status:        model.ProposalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Proposals.Create(ctx, db, p); err != nil {
		return nil, errors.Wrap(err, "create proposal")
	}
	s.logger.Info("proposal created",
		zap.String("proposal_id", p.ID),
		zap.String("student_id", p.StudentID),
		zap.String("tutor_id", p.TutorID))
	s.send(ctx, s.message(p.TutorID, model.NotifyProposalCreated, "New session request",
		"A student requested a session on "+start.Format(time.RFC1123), "/proposals/"+p.ID, p.ID))
	return p, nil
}

// Approve accepts a pending proposal and creates its session.  Both
// writes happen in one transaction.
func (s *ProposalService) Approve(ctx context.Context, actor model.Actor, id string, response *string) (*model.SessionProposal, *model.TutoringSession, error) {
	now := s.now()
	var sess *model.TutoringSession
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.pending(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		// A session approved by another request between the proposal and
		// now still wins; nothing locks the tutor's calendar between the
		// two checks.
		if err := s.overlapCheck(ctx, tx, p.TutorID, p.ProposedStart, p.ProposedEnd, ""); err != nil {
			return err
		}
		if err := s.store.Proposals.ResolvePending(ctx, tx, id, model.ProposalApproved, response, now); err != nil {
			return resolveErr(err)
		}
		studentID, proposalID := p.StudentID, p.ID
		sess = &model.TutoringSession{
			ID:               newID(),
			TutorID:          p.TutorID,
			StudentID:        &studentID,
			CourseID:         p.CourseID,
			ProposalID:       &proposalID,
			ScheduledStart:   p.ProposedStart,
			ScheduledEnd:     p.ProposedEnd,
			ScheduledMinutes: model.WindowMinutes(p.ProposedStart, p.ProposedEnd),
			Status:           model.SessionScheduled,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.store.Sessions.Create(ctx, tx, sess); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errors.Wrap(ErrInvalidState, "proposal already has a session")
			}
			return errors.Wrap(err, "create session")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	p, err := s.store.Proposals.GetByID(ctx, s.store.DB(), id)
	if err != nil {
		return nil, nil, lookup(err, "proposal")
	}
	s.logger.Info("proposal approved",
		zap.String("proposal_id", id),
		zap.String("session_id", sess.ID),
		zap.String("tutor_id", p.TutorID))
	s.send(ctx, s.message(p.StudentID, model.NotifyProposalApproved, "Session request approved",
		"Your session on "+p.ProposedStart.Format(time.RFC1123)+" was approved", "/sessions/"+sess.ID, sess.ID))
	return p, sess, nil
}

// Reject declines a pending proposal.
func (s *ProposalService) Reject(ctx context.Context, actor model.Actor, id string, response *string) (*model.SessionProposal, error) {
	now := s.now()
	err := s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.pending(ctx, tx, actor, id); err != nil {
			return err
		}
		return resolveErr(s.store.Proposals.ResolvePending(ctx, tx, id, model.ProposalRejected, response, now))
	})
	if err != nil {
		return nil, err
	}
	p, err := s.store.Proposals.GetByID(ctx, s.store.DB(), id)
	if err != nil {
		return nil, lookup(err, "proposal")
	}
	s.logger.Info("proposal rejected", zap.String("proposal_id", id), zap.String("tutor_id", p.TutorID))
	s.send(ctx, s.message(p.StudentID, model.NotifyProposalRejected, "Session request declined",
		"Your session request for "+p.ProposedStart.Format(time.RFC1123)+" was declined", "/proposals/"+p.ID, p.ID))
	return p, nil
}

// Get returns a proposal to one of its two parties.
func (s *ProposalService) Get(ctx context.Context, actor model.Actor, id string) (*model.SessionProposal, error) {
	p, err := s.store.Proposals.GetByID(ctx, s.store.DB(), id)
	if err != nil {
		return nil, lookup(err, "proposal")
	}
	if actor.UserID != p.StudentID && actor.UserID != p.TutorID && !actor.Role.IsStaff() {
		return nil, errors.Wrap(ErrForbidden, "not a party to this proposal")
	}
	return p, nil
}

// List returns the caller's proposals, as student or tutor.
func (s *ProposalService) List(ctx context.Context, actor model.Actor, status model.ProposalStatus) ([]model.SessionProposal, error) {
	switch status {
	case "", model.ProposalPending, model.ProposalApproved, model.ProposalRejected:
	default:
		return nil, invalid("status", "must be pending, approved or rejected")
	}
	out, err := s.store.Proposals.ListForUser(ctx, s.store.DB(), actor.UserID, status)
	if err != nil {
		return nil, errors.Wrap(err, "list proposals")
	}
	return out, nil
}

// pending loads a proposal the actor may decide on.
func (s *ProposalService) pending(ctx context.Context, q repository.Querier, actor model.Actor, id string) (*model.SessionProposal, error) {
	p, err := s.store.Proposals.GetByID(ctx, q, id)
	if err != nil {
		return nil, lookup(err, "proposal")
	}
	if p.TutorID != actor.UserID {
		return nil, errors.Wrap(ErrForbidden, "only the addressed tutor can decide")
	}
	if p.Status != model.ProposalPending {
		return nil, errors.Wrapf(ErrInvalidState, "proposal is %s", p.Status)
	}
	return p, nil
}

func resolveErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoChange):
		return errors.Wrap(ErrInvalidState, "proposal is no longer pending")
	}
	return errors.Wrap(err, "resolve proposal")
}

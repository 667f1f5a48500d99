package service_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/service"
	"github.com/iliyamo/tutoring-sessions/internal/testutil"
)

func TestProposeAndApproveCreatesOneSession(t *testing.T) {
	f := newFixture(t, service.Options{})

	p, err := f.svc.Proposals.Propose(f.ctx, testutil.Actor(f.student), service.ProposeInput{
		TutorID:  f.tutor.ID,
		CourseID: f.course.ID,
		Start:    at(13, 0),
		End:      at(13, 45),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalPending, p.Status)
	require.Len(t, f.notes.For(f.tutor.ID), 1)
	assert.Equal(t, model.NotifyProposalCreated, f.notes.For(f.tutor.ID)[0].Type)

	approved, sess, err := f.svc.Proposals.Approve(f.ctx, testutil.Actor(f.tutor), p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalApproved, approved.Status)
	assert.Equal(t, 45, sess.ScheduledMinutes)
	assert.Equal(t, model.SessionScheduled, sess.Status)
	require.NotNil(t, sess.StudentID)
	assert.Equal(t, f.student.ID, *sess.StudentID)
	require.NotNil(t, sess.ProposalID)
	assert.Equal(t, p.ID, *sess.ProposalID)

	_, _, err = f.svc.Proposals.Approve(f.ctx, testutil.Actor(f.tutor), p.ID, nil)
	assert.True(t, errors.Is(err, service.ErrInvalidState), "second approval: %v", err)

	sessions, err := f.svc.Sessions.List(f.ctx, testutil.Actor(f.tutor), service.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestRejectedProposalCannotBeApproved(t *testing.T) {
	f := newFixture(t, service.Options{})
	p, err := f.svc.Proposals.Propose(f.ctx, testutil.Actor(f.student), service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 0), End: at(14, 0),
	})
	require.NoError(t, err)

	reason := "busy that day"
	rejected, err := f.svc.Proposals.Reject(f.ctx, testutil.Actor(f.tutor), p.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalRejected, rejected.Status)
	require.NotNil(t, rejected.TutorResponse)
	assert.Equal(t, reason, *rejected.TutorResponse)

	_, _, err = f.svc.Proposals.Approve(f.ctx, testutil.Actor(f.tutor), p.ID, nil)
	assert.True(t, errors.Is(err, service.ErrInvalidState))
}

func TestOnlyAddressedTutorDecides(t *testing.T) {
	f := newFixture(t, service.Options{})
	other := testutil.SeedUser(t, f.store, model.RoleTutor, "Other Tutor")
	p, err := f.svc.Proposals.Propose(f.ctx, testutil.Actor(f.student), service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 0), End: at(14, 0),
	})
	require.NoError(t, err)

	_, _, err = f.svc.Proposals.Approve(f.ctx, testutil.Actor(other), p.ID, nil)
	assert.True(t, errors.Is(err, service.ErrForbidden))
	_, err = f.svc.Proposals.Reject(f.ctx, testutil.Actor(f.student), p.ID, nil)
	assert.True(t, errors.Is(err, service.ErrForbidden))
}

func TestProposeValidation(t *testing.T) {
	f := newFixture(t, service.Options{})
	student := testutil.Actor(f.student)

	_, err := f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 0), End: at(13, 20),
	})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "proposed_end")

	_, err = f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(14, 0), End: at(13, 0),
	})
	assert.True(t, errors.Is(err, service.ErrValidation))

	_, err = f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.student.ID, CourseID: f.course.ID, Start: at(13, 0), End: at(14, 0),
	})
	assert.True(t, errors.Is(err, service.ErrNotFound), "a non-tutor is not a valid tutor")

	_, err = f.svc.Proposals.Propose(f.ctx, testutil.Actor(f.tutor), service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 0), End: at(14, 0),
	})
	assert.True(t, errors.Is(err, service.ErrForbidden))
}

func TestProposalConflictsWithBookedSession(t *testing.T) {
	f := newFixture(t, service.Options{})
	f.booked(t, at(13, 0), at(14, 0))
	student := testutil.Actor(f.student)

	_, err := f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 30), End: at(14, 30),
	})
	assert.True(t, errors.Is(err, service.ErrConflict))

	// touching windows do not overlap
	_, err = f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(14, 0), End: at(15, 0),
	})
	assert.NoError(t, err)
}

func TestApproveRechecksOverlap(t *testing.T) {
	f := newFixture(t, service.Options{})
	student := testutil.Actor(f.student)
	first, err := f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 0), End: at(14, 0),
	})
	require.NoError(t, err)
	second, err := f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(13, 30), End: at(14, 30),
	})
	require.NoError(t, err)

	_, _, err = f.svc.Proposals.Approve(f.ctx, testutil.Actor(f.tutor), first.ID, nil)
	require.NoError(t, err)
	_, _, err = f.svc.Proposals.Approve(f.ctx, testutil.Actor(f.tutor), second.ID, nil)
	assert.True(t, errors.Is(err, service.ErrConflict))

	p, err := f.svc.Proposals.Get(f.ctx, student, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalPending, p.Status, "a failed approval leaves the proposal pending")
}

func TestEnforcedAvailability(t *testing.T) {
	f := newFixture(t, service.Options{EnforceAvailability: true})
	student := testutil.Actor(f.student)
	propose := func(start, end int) error {
		_, err := f.svc.Proposals.Propose(f.ctx, student, service.ProposeInput{
			TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(start, 0), End: at(end, 0),
		})
		return err
	}

	// no published windows: anything goes
	require.NoError(t, propose(7, 8))

	_, err := f.svc.Availability.Create(f.ctx, testutil.Actor(f.tutor), service.AvailabilityInput{
		DayOfWeek: int(monday.Weekday()), StartTime: "12:00", EndTime: "16:00",
	})
	require.NoError(t, err)

	assert.NoError(t, propose(13, 15))
	err = propose(15, 17)
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "proposed_start")
}

func TestListProposalsByStatus(t *testing.T) {
	f := newFixture(t, service.Options{})
	f.booked(t, at(10, 0), at(11, 0))
	_, err := f.svc.Proposals.Propose(f.ctx, testutil.Actor(f.student), service.ProposeInput{
		TutorID: f.tutor.ID, CourseID: f.course.ID, Start: at(12, 0), End: at(13, 0),
	})
	require.NoError(t, err)

	pending, err := f.svc.Proposals.List(f.ctx, testutil.Actor(f.tutor), model.ProposalPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	all, err := f.svc.Proposals.List(f.ctx, testutil.Actor(f.student), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.Proposals.List(f.ctx, testutil.Actor(f.student), "bogus")
	assert.True(t, errors.Is(err, service.ErrValidation))
}

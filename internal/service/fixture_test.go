package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
	"github.com/iliyamo/tutoring-sessions/internal/service"
	"github.com/iliyamo/tutoring-sessions/internal/testutil"
)

// monday is 2025-03-10, a Monday, at midnight UTC.
var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

type fixture struct {
	ctx     context.Context
	store   *repository.Store
	svc     *service.Services
	clock   *testutil.Clock
	notes   *service.RecordingNotifier
	admin   model.User
	tutor   model.User
	student model.User
	course  model.Course
}

func newFixture(t *testing.T, opts service.Options) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	clock := testutil.NewClock(at(9, 0))
	notes := &service.RecordingNotifier{}
	opts.Now = clock.Now
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		svc:     service.New(store, notes, nil, opts),
		clock:   clock,
		notes:   notes,
		admin:   testutil.SeedUser(t, store, model.RoleAdmin, "Ada Admin"),
		tutor:   testutil.SeedUser(t, store, model.RoleTutor, "Tom Tutor"),
		student: testutil.SeedUser(t, store, model.RoleStudent, "Sam Student"),
		course:  testutil.SeedCourse(t, store, "Algebra"),
	}
}

func (f *fixture) fund(t *testing.T, student model.User, minutes int) {
	t.Helper()
	_, err := f.svc.Wallets.AddMinutes(f.ctx, testutil.Actor(f.admin), student.ID, f.course.ID, minutes, "top-up")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, student model.User) int {
	t.Helper()
	b, err := f.svc.Wallets.Balance(f.ctx, student.ID, f.course.ID)
	require.NoError(t, err)
	return b
}

// booked proposes and approves a 1:1 session between f.student and
// f.tutor.
func (f *fixture) booked(t *testing.T, start, end time.Time) *model.TutoringSession {
	t.Helper()
	p, err := f.svc.Proposals.Propose(f.ctx, testutil.Actor(f.student), service.ProposeInput{
		TutorID:  f.tutor.ID,
		CourseID: f.course.ID,
		Start:    start,
		End:      end,
	})
	require.NoError(t, err)
	_, sess, err := f.svc.Proposals.Approve(f.ctx, testutil.Actor(f.tutor), p.ID, nil)
	require.NoError(t, err)
	return sess
}

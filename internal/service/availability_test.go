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

func TestAvailabilityCRUD(t *testing.T) {
	f := newFixture(t, service.Options{})
	tutor := testutil.Actor(f.tutor)
	inactive := false

	a, err := f.svc.Availability.Create(f.ctx, tutor, service.AvailabilityInput{DayOfWeek: 0, StartTime: "09:00", EndTime: "12:00"})
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	assert.True(t, a.IsRecurring)
	_, err = f.svc.Availability.Create(f.ctx, tutor, service.AvailabilityInput{DayOfWeek: 3, StartTime: "14:00", EndTime: "18:00", IsActive: &inactive})
	require.NoError(t, err)

	active, err := f.svc.Availability.ListByTutor(f.ctx, f.tutor.ID, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := f.svc.Availability.ListByTutor(f.ctx, f.tutor.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := f.svc.Availability.Update(f.ctx, tutor, a.ID, service.AvailabilityInput{DayOfWeek: 1, StartTime: "08:00", EndTime: "10:30"})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.DayOfWeek)
	assert.Equal(t, "10:30", updated.EndTime)

	require.NoError(t, f.svc.Availability.Delete(f.ctx, tutor, a.ID))
	err = f.svc.Availability.Delete(f.ctx, tutor, a.ID)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestAvailabilityRules(t *testing.T) {
	f := newFixture(t, service.Options{})
	tutor := testutil.Actor(f.tutor)

	_, err := f.svc.Availability.Create(f.ctx, testutil.Actor(f.student), service.AvailabilityInput{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"})
	assert.True(t, errors.Is(err, service.ErrForbidden))

	_, err = f.svc.Availability.Create(f.ctx, tutor, service.AvailabilityInput{DayOfWeek: 7, StartTime: "10:00", EndTime: "09:00"})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "day_of_week")
	assert.Contains(t, verr.Fields, "end_time")

	a, err := f.svc.Availability.Create(f.ctx, tutor, service.AvailabilityInput{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)
	other := testutil.Actor(testutil.SeedUser(t, f.store, model.RoleTutor, "Other Tutor"))
	_, err = f.svc.Availability.Update(f.ctx, other, a.ID, service.AvailabilityInput{DayOfWeek: 1, StartTime: "09:00", EndTime: "11:00"})
	assert.True(t, errors.Is(err, service.ErrForbidden))
}

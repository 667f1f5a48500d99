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

func TestAddMinutesCreatesThenCredits(t *testing.T) {
	f := newFixture(t, service.Options{})
	admin := testutil.Actor(f.admin)

	w, err := f.svc.Wallets.AddMinutes(f.ctx, admin, f.student.ID, f.course.ID, 90, "first pack")
	require.NoError(t, err)
	assert.Equal(t, 90, w.PurchasedMinutes)
	assert.Equal(t, model.WalletActive, w.Status)

	again, err := f.svc.Wallets.AddMinutes(f.ctx, admin, f.student.ID, f.course.ID, 30, "")
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)
	assert.Equal(t, 120, again.Balance())

	txs, err := f.svc.Wallets.ListTransactions(f.ctx, testutil.Actor(f.student), w.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TxPurchase, txs[0].Kind)
	require.NotNil(t, txs[0].ActorID)
	assert.Equal(t, f.admin.ID, *txs[0].ActorID)
}

func TestAddMinutesRules(t *testing.T) {
	f := newFixture(t, service.Options{})

	_, err := f.svc.Wallets.AddMinutes(f.ctx, testutil.Actor(f.tutor), f.student.ID, f.course.ID, 60, "")
	assert.True(t, errors.Is(err, service.ErrForbidden))

	_, err = f.svc.Wallets.AddMinutes(f.ctx, testutil.Actor(f.admin), f.student.ID, f.course.ID, 0, "")
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "minutes")

	_, err = f.svc.Wallets.AddMinutes(f.ctx, testutil.Actor(f.admin), f.student.ID, "no-such-course", 60, "")
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestAllocateSplitsHours(t *testing.T) {
	f := newFixture(t, service.Options{})
	physics := testutil.SeedCourse(t, f.store, "Physics")
	manager := testutil.Actor(testutil.SeedUser(t, f.store, model.RoleManager, "Mia Manager"))

	wallets, err := f.svc.Wallets.Allocate(f.ctx, manager, service.AllocateInput{
		StudentID:   f.student.ID,
		TotalHours:  10,
		Allocations: map[string]float64{f.course.ID: 6.5, physics.ID: 3.5},
	})
	require.NoError(t, err)
	require.Len(t, wallets, 2)

	got := map[string]int{}
	for _, w := range wallets {
		got[w.CourseID] = w.PurchasedMinutes
	}
	assert.Equal(t, map[string]int{f.course.ID: 390, physics.ID: 210}, got)

	list, err := f.svc.Wallets.ListWallets(f.ctx, testutil.Actor(f.student), "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAllocateTolerance(t *testing.T) {
	f := newFixture(t, service.Options{})
	physics := testutil.SeedCourse(t, f.store, "Physics")
	admin := testutil.Actor(f.admin)

	_, err := f.svc.Wallets.Allocate(f.ctx, admin, service.AllocateInput{
		StudentID:   f.student.ID,
		TotalHours:  5,
		Allocations: map[string]float64{f.course.ID: 2.5, physics.ID: 2.495},
	})
	assert.NoError(t, err, "within 0.01 hours")

	_, err = f.svc.Wallets.Allocate(f.ctx, admin, service.AllocateInput{
		StudentID:   f.student.ID,
		TotalHours:  5,
		Allocations: map[string]float64{f.course.ID: 2.5, physics.ID: 2.4},
	})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "allocations")
}

func TestAllocateIsAllOrNothing(t *testing.T) {
	f := newFixture(t, service.Options{})
	_, err := f.svc.Wallets.Allocate(f.ctx, testutil.Actor(f.admin), service.AllocateInput{
		StudentID:   f.student.ID,
		TotalHours:  2,
		Allocations: map[string]float64{f.course.ID: 1, "zz-missing": 1},
	})
	assert.True(t, errors.Is(err, service.ErrNotFound))
	assert.Equal(t, 0, f.balance(t, f.student))
}

func TestWalletVisibility(t *testing.T) {
	f := newFixture(t, service.Options{})
	f.fund(t, f.student, 60)
	w, err := f.store.Wallets.Get(f.ctx, f.store.DB(), f.student.ID, f.course.ID)
	require.NoError(t, err)
	other := testutil.Actor(testutil.SeedUser(t, f.store, model.RoleStudent, "Nosy"))

	_, err = f.svc.Wallets.GetWallet(f.ctx, other, w.ID)
	assert.True(t, errors.Is(err, service.ErrForbidden))
	_, err = f.svc.Wallets.ListWallets(f.ctx, other, f.student.ID)
	assert.True(t, errors.Is(err, service.ErrForbidden))
	_, err = f.svc.Wallets.ListWallets(f.ctx, testutil.Actor(f.tutor), "")
	assert.True(t, errors.Is(err, service.ErrValidation))

	all, err := f.svc.Wallets.ListWallets(f.ctx, testutil.Actor(f.admin), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, err = f.svc.Wallets.GetWallet(f.ctx, testutil.Actor(f.admin), "missing")
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

package service_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/service"
	"github.com/iliyamo/tutoring-sessions/internal/testutil"
)

func TestStoreNotifierPersistsMessages(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	clock := testutil.NewClock(at(9, 0))
	svc := service.New(store, service.NewStoreNotifier(store), nil, service.Options{Now: clock.Now})
	admin := testutil.SeedUser(t, store, model.RoleAdmin, "Admin")
	student := testutil.SeedUser(t, store, model.RoleStudent, "Student")
	course := testutil.SeedCourse(t, store, "Chemistry")

	_, err := svc.Wallets.AddMinutes(ctx, testutil.Actor(admin), student.ID, course.ID, 60, "")
	require.NoError(t, err)

	unread, err := svc.Notifications.List(ctx, testutil.Actor(student), true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	n := unread[0]
	assert.Equal(t, model.NotifyWalletCredited, n.Type)
	assert.False(t, n.IsRead)

	err = svc.Notifications.MarkRead(ctx, testutil.Actor(admin), n.ID)
	assert.True(t, errors.Is(err, service.ErrNotFound), "only the recipient can mark it read")

	require.NoError(t, svc.Notifications.MarkRead(ctx, testutil.Actor(student), n.ID))
	unread, err = svc.Notifications.List(ctx, testutil.Actor(student), true)
	require.NoError(t, err)
	assert.Empty(t, unread)
	all, err := svc.Notifications.List(ctx, testutil.Actor(student), false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

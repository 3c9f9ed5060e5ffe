package service

import (
	"context"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceSubscriptionState(t *testing.T) {
	f := newFixture(t)
	chef := testutil.CreateUser(t, f.db, "chef")
	reader := testutil.CreateUser(t, f.db, "reader")
	ctx := context.Background()
	_, err := f.follow.Subscribe(ctx, reader.ID, chef.ID, 0)
	require.NoError(t, err)

	view, err := f.users.Get(ctx, reader.ID, chef.ID)
	require.NoError(t, err)
	assert.True(t, view.IsSubscribed)

	view, err = f.users.Get(ctx, 0, chef.ID)
	require.NoError(t, err)
	assert.False(t, view.IsSubscribed)

	me, err := f.users.Get(ctx, reader.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, me.IsSubscribed)

	views, total, err := f.users.List(ctx, reader.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, views, 2)
	assert.True(t, views[0].IsSubscribed)
	assert.False(t, views[1].IsSubscribed)

	_, err = f.users.Get(ctx, reader.ID, 999)
	assertCode(t, err, models.CodeNotFound)
}

func TestUserServiceAdmins(t *testing.T) {
	f := newFixture(t)
	u := testutil.CreateUser(t, f.db, "boss")
	ctx := context.Background()

	isAdmin, err := f.users.IsAdmin(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	promoted, err := f.users.SetAdmin(ctx, u.Email, true)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	admins, err := f.users.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, u.ID, admins[0].ID)

	_, err = f.users.SetAdmin(ctx, "nobody@example.com", true)
	assertCode(t, err, models.CodeNotFound)

	isAdmin, err = f.users.IsAdmin(ctx, 0)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

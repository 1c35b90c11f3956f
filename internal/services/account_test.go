package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/AnshRaj112/clipstream-backend/pkg/utils"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountFixture struct {
	svc    *AccountService
	tokens *TokenService
	users  *fakeUserStore
	obj    *fakeObjectStore
	user   *models.User
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	users := newFakeUserStore()
	obj := newFakeObjectStore()
	tokens := NewTokenService(testTokenConfig, users)

	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	u := users.put(&models.User{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: hash,
		Avatar:   models.MediaAsset{PublicID: "old-avatar", URL: "https://cdn/old-avatar.png"},
	})

	return &accountFixture{
		svc:    NewAccountService(users, tokens, NewMediaService(obj, log), log),
		tokens: tokens,
		users:  users,
		obj:    obj,
		user:   u,
	}
}

func TestLogin(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	t.Run("by username", func(t *testing.T) {
		u, pair, err := f.svc.Login(ctx, LoginInput{Username: "ALICE", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, u.ID)
		assert.Empty(t, u.Password)
		assert.Empty(t, u.RefreshToken)
		assert.Equal(t, pair.RefreshToken, f.users.get(f.user.ID).RefreshToken)
	})

	t.Run("by email", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "correct horse"})
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "battery staple"})
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Username: "bob", Password: "correct horse"})
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("missing identifier", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Password: "x"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Username: "alice"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestLogoutThenRefreshFails(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, f.user.ID))
	assert.Empty(t, f.users.get(f.user.ID).RefreshToken)

	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrTokenMismatch)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong old password", func(t *testing.T) {
		f := newAccountFixture(t)
		err := f.svc.ChangePassword(ctx, f.user.ID, "nope", "new secret")
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("replaces hash and revokes session", func(t *testing.T) {
		f := newAccountFixture(t)
		_, pair, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse"})
		require.NoError(t, err)

		require.NoError(t, f.svc.ChangePassword(ctx, f.user.ID, "correct horse", "new secret"))

		_, _, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse"})
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
		_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, apperr.ErrTokenMismatch)
		_, _, err = f.svc.Login(ctx, LoginInput{Username: "alice", Password: "new secret"})
		assert.NoError(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newAccountFixture(t)
		err := f.svc.ChangePassword(ctx, f.user.ID, "", "")
		require.ErrorIs(t, err, apperr.ErrValidation)
		e, _ := apperr.As(err)
		assert.Len(t, e.Details, 2)
	})
}

func TestUpdateDetails(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	f.users.put(&models.User{Username: "bob", Email: "bob@example.com"})

	u, err := f.svc.UpdateDetails(ctx, f.user.ID, " Alice L ", "ALICE@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice L", u.FullName)
	assert.Equal(t, "alice@new.example.com", u.Email)

	_, err = f.svc.UpdateDetails(ctx, f.user.ID, "Alice", "bob@example.com")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.UpdateDetails(ctx, f.user.ID, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces and deletes the old asset", func(t *testing.T) {
		f := newAccountFixture(t)
		u, err := f.svc.UpdateAvatar(ctx, f.user.ID, tempUpload(t, "new.png"))
		require.NoError(t, err)
		assert.Equal(t, "asset-1", u.Avatar.PublicID)
		assert.Equal(t, [][]string{{"old-avatar"}}, f.obj.deletes)
	})

	t.Run("derives the old id from the url when missing", func(t *testing.T) {
		f := newAccountFixture(t)
		f.users.mutate(f.user.ID, func(u *models.User) {
			u.Avatar = models.MediaAsset{URL: "https://cdn/image/upload/v1/legacy42.jpg"}
		})
		_, err := f.svc.UpdateAvatar(ctx, f.user.ID, tempUpload(t, "new.png"))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"legacy42"}}, f.obj.deletes)
	})

	t.Run("store failure removes the new upload", func(t *testing.T) {
		f := newAccountFixture(t)
		f.users.updateErr = errBoom
		_, err := f.svc.UpdateAvatar(ctx, f.user.ID, tempUpload(t, "new.png"))
		assert.ErrorIs(t, err, apperr.ErrInternal)
		assert.Equal(t, [][]string{{"asset-1"}}, f.obj.deletes)
	})

	t.Run("missing file", func(t *testing.T) {
		f := newAccountFixture(t)
		_, err := f.svc.UpdateAvatar(ctx, f.user.ID, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Empty(t, f.obj.uploads)
	})
}

func TestCoverImageLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)

	u, err := f.svc.UpdateCoverImage(ctx, f.user.ID, tempUpload(t, "cover.png"))
	require.NoError(t, err)
	require.NotNil(t, u.CoverImage)
	assert.Empty(t, f.obj.deletes, "no previous cover to delete")

	f.obj.deleteErr = errors.New("cdn down")
	u, err = f.svc.RemoveCoverImage(ctx, f.user.ID)
	require.NoError(t, err, "delete failures are swallowed")
	assert.Nil(t, u.CoverImage)
	assert.Equal(t, [][]string{{"asset-1"}}, f.obj.deletes)
}

func TestCurrentUser(t *testing.T) {
	f := newAccountFixture(t)

	u, err := f.svc.CurrentUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Password)

	_, err = f.svc.CurrentUser(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStartSession(t *testing.T) {
	f := newAccountFixture(t)

	pair, err := f.svc.StartSession(context.Background(), f.user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, pair.RefreshToken, f.users.get(f.user.ID).RefreshToken)

	id, err := f.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, id)
}

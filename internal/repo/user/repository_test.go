package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/repo/user"
)

func ptr[T any](v T) *T {
	return &v
}

// testRepository runs the same behaviour checks against any Repository.
func testRepository(t *testing.T, repo user.Repository) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	annID, err := repo.CreateUser(ctx, &domain.User{
		Name: "Ann", Email: "ann@x.io", PasswordHash: "hash-1", CreatedAt: now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, annID)

	_, err = repo.CreateUser(ctx, &domain.User{
		Name: "Ann Again", Email: "ann@x.io", PasswordHash: "hash-2", CreatedAt: now,
	})
	require.ErrorIs(t, err, domain.ErrEmailExists)

	bobID, err := repo.CreateUser(ctx, &domain.User{
		Name: "Bob", Email: "bob@x.io", PasswordHash: "hash-3", CreatedAt: now,
	})
	require.NoError(t, err)

	t.Run("get by id", func(t *testing.T) {
		got, found, err := repo.GetUserByID(ctx, annID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, annID, got.ID)
		assert.Equal(t, "Ann", got.Name)
		assert.Equal(t, "hash-1", got.PasswordHash)
		assert.True(t, now.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, now)
	})

	t.Run("get by email", func(t *testing.T) {
		got, found, err := repo.GetUserByEmail(ctx, "bob@x.io")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, bobID, got.ID)

		_, found, err = repo.GetUserByEmail(ctx, "nobody@x.io")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		_, found, err := repo.GetUserByID(ctx, "not-an-id")
		require.NoError(t, err)
		assert.False(t, found)

		found, err = repo.DeleteUser(ctx, "not-an-id")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("list", func(t *testing.T) {
		users, err := repo.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, annID, users[0].ID)
		assert.Equal(t, bobID, users[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		found, err := repo.UpdateUser(ctx, annID, domain.UserUpdate{Name: ptr("Annie")})
		require.NoError(t, err)
		assert.True(t, found)

		got, _, err := repo.GetUserByID(ctx, annID)
		require.NoError(t, err)
		assert.Equal(t, "Annie", got.Name)
		assert.Equal(t, "ann@x.io", got.Email)

		_, err = repo.UpdateUser(ctx, annID, domain.UserUpdate{Email: ptr("bob@x.io")})
		require.ErrorIs(t, err, domain.ErrEmailExists)

		found, err = repo.UpdateUser(ctx, annID, domain.UserUpdate{})
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		found, err := repo.DeleteUser(ctx, bobID)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = repo.DeleteUser(ctx, bobID)
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = repo.GetUserByID(ctx, bobID)
		require.NoError(t, err)
		assert.False(t, found)

		found, err = repo.UpdateUser(ctx, bobID, domain.UserUpdate{Name: ptr("Ghost")})
		require.NoError(t, err)
		assert.False(t, found)
	})
}

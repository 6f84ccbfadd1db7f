package post_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/repo/post"
)

// testRepository runs the same behaviour checks against any Repository.
// newUserID must return ids in the store's native format.
//
//nolint:funlen
func testRepository(t *testing.T, repo post.Repository, newUserID func() domain.UserID, missingPostID domain.PostID) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	ann, bob := newUserID(), newUserID()
	image := "https://cdn.example.net/posts/a.jpg"

	firstID, err := repo.CreatePost(ctx, &domain.Post{
		Title:      "Hi",
		Content:    "Body",
		Image:      &image,
		Categories: []string{"news"},
		Tags:       []string{"a", "b"},
		AuthorID:   ann,
		CreatedAt:  now,
	})
	require.NoError(t, err)

	secondID, err := repo.CreatePost(ctx, &domain.Post{
		Title:     "Second",
		Content:   "More",
		AuthorID:  ann,
		CreatedAt: now.Add(time.Second),
	})
	require.NoError(t, err)

	_, err = repo.CreatePost(ctx, &domain.Post{Title: "Bob's", AuthorID: bob, CreatedAt: now})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, found, err := repo.GetPost(ctx, firstID)
		require.NoError(t, err)
		require.True(t, found)

		assert.Equal(t, firstID, got.ID)
		assert.Equal(t, "Hi", got.Title)
		require.NotNil(t, got.Image)
		assert.Equal(t, image, *got.Image)
		assert.Equal(t, []string{"news"}, got.Categories)
		assert.Equal(t, []string{"a", "b"}, got.Tags)
		assert.Equal(t, ann, got.AuthorID)
		assert.True(t, now.Equal(got.CreatedAt))
		assert.Empty(t, got.Likes)
		assert.NotNil(t, got.Likes)
		assert.Empty(t, got.Comments)
		assert.NotNil(t, got.Comments)

		second, found, err := repo.GetPost(ctx, secondID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Nil(t, second.Image)
		assert.Equal(t, []string{}, second.Tags)
	})

	t.Run("get missing", func(t *testing.T) {
		for _, id := range []domain.PostID{missingPostID, "not-an-id"} {
			_, found, err := repo.GetPost(ctx, id)
			require.NoError(t, err)
			assert.False(t, found, id)
		}
	})

	t.Run("list by author", func(t *testing.T) {
		posts, err := repo.ListPostsByAuthor(ctx, ann)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, firstID, posts[0].ID)
		assert.Equal(t, secondID, posts[1].ID)

		posts, err = repo.ListPostsByAuthor(ctx, newUserID())
		require.NoError(t, err)
		assert.Empty(t, posts)

		_, err = repo.ListPostsByAuthor(ctx, "not-an-id")
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("like is a set", func(t *testing.T) {
		changed, err := repo.AddLike(ctx, firstID, bob)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.AddLike(ctx, firstID, bob)
		require.NoError(t, err)
		assert.False(t, changed)

		changed, err = repo.AddLike(ctx, firstID, ann)
		require.NoError(t, err)
		assert.True(t, changed)

		got, _, err := repo.GetPost(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, []domain.UserID{bob, ann}, got.Likes)

		changed, err = repo.AddLike(ctx, missingPostID, bob)
		require.NoError(t, err)
		assert.False(t, changed)

		_, err = repo.AddLike(ctx, firstID, "not-an-id")
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("comments keep order", func(t *testing.T) {
		for i := range 5 {
			found, err := repo.AddComment(ctx, secondID, domain.Comment{
				UserID:    bob,
				Text:      fmt.Sprintf("comment %d", i),
				Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			})
			require.NoError(t, err)
			require.True(t, found)
		}

		got, _, err := repo.GetPost(ctx, secondID)
		require.NoError(t, err)
		require.Len(t, got.Comments, 5)

		for i, c := range got.Comments {
			assert.Equal(t, fmt.Sprintf("comment %d", i), c.Text)
			assert.Equal(t, bob, c.UserID)

			if i > 0 {
				assert.False(t, c.Timestamp.Before(got.Comments[i-1].Timestamp))
			}
		}

		found, err := repo.AddComment(ctx, missingPostID, domain.Comment{UserID: bob, Text: "x", Timestamp: now})
		require.NoError(t, err)
		assert.False(t, found)
	})
}

package post

import (
	"context"

	"github.com/mkrupp/postboard/internal/domain"
)

// Repository defines the interface for post persistence. Likes and comments are
// embedded in the post and changed by single atomic updates.
type Repository interface {
	// CreatePost stores post and returns its new id.
	CreatePost(ctx context.Context, post *domain.Post) (domain.PostID, error)

	// GetPost returns the post and true if found, or nil and false if not.
	GetPost(ctx context.Context, id domain.PostID) (*domain.Post, bool, error)

	// ListPostsByAuthor returns the author's posts, oldest first.
	ListPostsByAuthor(ctx context.Context, author domain.UserID) ([]domain.Post, error)

	// AddLike adds user to the post's likes and reports whether anything changed.
	// False means the post does not exist or the user already liked it.
	AddLike(ctx context.Context, id domain.PostID, user domain.UserID) (bool, error)

	// AddComment appends comment and reports whether the post exists.
	AddComment(ctx context.Context, id domain.PostID, comment domain.Comment) (bool, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)

package postsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/repo/post"
	"github.com/mkrupp/postboard/internal/repo/user"
)

// ImageUploader stores a post image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// PostService creates posts and records likes and comments on them.
type PostService struct {
	PostRepo post.Repository
	UserRepo user.Repository
	Images   ImageUploader
	Log      logging.Logger
	Now      func() time.Time
}

// NewPostService creates a new PostService. Authors are looked up through the user
// repository userFactory creates.
func NewPostService(
	postFactory post.RepositoryFactory,
	userFactory user.RepositoryFactory,
	images ImageUploader,
) (*PostService, error) {
	postRepo, err := postFactory()
	if err != nil {
		return nil, fmt.Errorf("new post repo: %w", err)
	}

	userRepo, err := userFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &PostService{
		PostRepo: postRepo,
		UserRepo: userRepo,
		Images:   images,
		Log:      logging.GetLogger("svc.postsvc.post_service"),
		Now:      time.Now,
	}, nil
}

func (s *PostService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}

	return s.Now().UTC()
}

// CreatePost stores a new post by author. The author must still exist; a session
// outliving its account yields ErrUnauthenticated joined with ErrUserNotFound. If
// upload is set the image is stored first and the post references its URL. An image
// stored for a post that then fails to insert stays in the object store.
func (s *PostService) CreatePost(
	ctx context.Context,
	author domain.UserID,
	fields domain.NewPost,
	upload *domain.Upload,
) (_ *domain.Post, err error) {
	log := s.Log.With(logging.Group("post", "author", author))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create post failed", "error", err)
		} else {
			log.DebugContext(ctx, "post created")
		}
	}()

	if strings.TrimSpace(fields.Title) == "" {
		return nil, domain.Invalidf("title is required")
	}

	if strings.TrimSpace(fields.Content) == "" {
		return nil, domain.Invalidf("content is required")
	}

	if err := s.checkAuthor(ctx, author); err != nil {
		return nil, err
	}

	//nolint:exhaustruct
	created := &domain.Post{
		Title:      fields.Title,
		Content:    fields.Content,
		Categories: nonNil(fields.Categories),
		Tags:       nonNil(fields.Tags),
		AuthorID:   author,
		CreatedAt:  s.now(),
		Likes:      []domain.UserID{},
		Comments:   []domain.Comment{},
	}

	if upload != nil {
		url, err := s.uploadImage(ctx, upload)
		if err != nil {
			return nil, err
		}

		created.Image = &url
	}

	id, err := s.PostRepo.CreatePost(ctx, created)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	created.ID = id
	log = log.With(logging.Group("post", "id", id))

	return created, nil
}

func (s *PostService) checkAuthor(ctx context.Context, author domain.UserID) error {
	_, found, err := s.UserRepo.GetUserByID(ctx, author)
	if err != nil {
		return fmt.Errorf("get author: %w", err)
	} else if !found {
		return errors.Join(domain.ErrUnauthenticated, domain.ErrUserNotFound)
	}

	return nil
}

func (s *PostService) uploadImage(ctx context.Context, upload *domain.Upload) (string, error) {
	if s.Images == nil {
		return "", errors.Join(domain.ErrUploadFailed, errors.New("no image store configured"))
	}

	url, err := s.Images.Upload(ctx, upload.Filename, upload.Data)
	if err != nil {
		if !isImageError(err) && !errors.Is(err, domain.ErrUploadFailed) {
			err = errors.Join(domain.ErrUploadFailed, err)
		}

		return "", fmt.Errorf("upload image: %w", err)
	}

	return url, nil
}

func isImageError(err error) bool {
	return errors.Is(err, domain.ErrImageEmpty) ||
		errors.Is(err, domain.ErrImageTooLarge) ||
		errors.Is(err, domain.ErrImageTypeNotSupported) ||
		errors.Is(err, domain.ErrImageInvalid)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}

	return list
}

// ListPostsByAuthor returns all posts written by author.
func (s *PostService) ListPostsByAuthor(ctx context.Context, author domain.UserID) ([]domain.Post, error) {
	posts, err := s.PostRepo.ListPostsByAuthor(ctx, author)
	if err != nil {
		s.Log.ErrorContext(ctx, "list posts failed", "error", err, logging.Group("post", "author", author))

		return nil, fmt.Errorf("list posts: %w", err)
	}

	if posts == nil {
		posts = []domain.Post{}
	}

	return posts, nil
}

// GetPost returns the post with id or ErrPostNotFound.
func (s *PostService) GetPost(ctx context.Context, id domain.PostID) (*domain.Post, error) {
	found, ok, err := s.PostRepo.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	} else if !ok {
		return nil, domain.ErrPostNotFound
	}

	return found, nil
}

// LikePost adds user to the likes of the post. Liking twice changes nothing and,
// like a missing post, yields ErrAlreadyLikedOrNotFound.
func (s *PostService) LikePost(ctx context.Context, id domain.PostID, user domain.UserID) (err error) {
	log := s.Log.With(logging.Group("post", "id", id, "user", user))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "like post failed", "error", err)
		} else {
			log.DebugContext(ctx, "post liked")
		}
	}()

	changed, err := s.PostRepo.AddLike(ctx, id, user)
	if err != nil {
		return fmt.Errorf("add like: %w", err)
	} else if !changed {
		return domain.ErrAlreadyLikedOrNotFound
	}

	return nil
}

// CommentPost appends a comment by user to the post.
func (s *PostService) CommentPost(ctx context.Context, id domain.PostID, user domain.UserID, text string) (err error) {
	log := s.Log.With(logging.Group("post", "id", id, "user", user))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "comment post failed", "error", err)
		} else {
			log.DebugContext(ctx, "comment added")
		}
	}()

	if strings.TrimSpace(text) == "" {
		return domain.Invalidf("text is required")
	}

	found, err := s.PostRepo.AddComment(ctx, id, domain.Comment{
		UserID:    user,
		Text:      text,
		Timestamp: s.now(),
	})
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	} else if !found {
		return domain.ErrPostNotFound
	}

	return nil
}

package post

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/infra/sqlite"
	"github.com/mkrupp/postboard/internal/util/encoding"
)

// SQLitePostRepository implements Repository on the embedded SQLite store.
// Likes and comments live in child tables; ids are UUIDv7 in Crockford base32.
type SQLitePostRepository struct {
	db  *sqlite.DB
	log logging.Logger
}

var _ Repository = (*SQLitePostRepository)(nil)

// SQLitePostRepositoryFactory returns a RepositoryFactory bound to db.
func SQLitePostRepositoryFactory(db *sqlite.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLitePostRepository(db), nil
	}
}

// NewSQLitePostRepository creates a repository on an opened database.
func NewSQLitePostRepository(db *sqlite.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db:  db,
		log: logging.GetLogger("repo.post.sqlite_post_repository"),
	}
}

// canonicalID returns the stored form of id, or false if no record can have it.
func canonicalID(id string) (string, bool) {
	raw, err := encoding.DecodeCrockfordB32LC(id)
	if err != nil || len(raw) != len(uuid.UUID{}) {
		return "", false
	}

	return encoding.EncodeCrockfordB32LC(raw), true
}

func userRef(id domain.UserID) (string, error) {
	ref, ok := canonicalID(id.String())
	if !ok {
		return "", fmt.Errorf("%w: user id %q", domain.ErrInvalidID, id)
	}

	return ref, nil
}

// CreatePost implements Repository.CreatePost.
func (r *SQLitePostRepository) CreatePost(ctx context.Context, post *domain.Post) (domain.PostID, error) {
	author, err := userRef(post.AuthorID)
	if err != nil {
		return "", err
	}

	uid, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	id := encoding.EncodeCrockfordB32LC(uid[:])

	categories, err := json.Marshal(nonNil(post.Categories))
	if err != nil {
		return "", fmt.Errorf("marshal categories: %w", err)
	}

	tags, err := json.Marshal(nonNil(post.Tags))
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, content, image, categories, tags, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		post.Title,
		post.Content,
		post.Image,
		string(categories),
		string(tags),
		author,
		post.CreatedAt.UnixNano(),
	); err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}

	return domain.PostID(id), nil
}

const selectPost = "SELECT id, title, content, image, categories, tags, author_id, created_at FROM posts"

func scanPost(row interface{ Scan(dest ...any) error }) (*domain.Post, error) {
	var (
		post       domain.Post
		image      sql.NullString
		categories string
		tags       string
		createdAt  int64
	)

	if err := row.Scan(
		&post.ID, &post.Title, &post.Content, &image, &categories, &tags, &post.AuthorID, &createdAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if image.Valid {
		post.Image = &image.String
	}

	if err := json.Unmarshal([]byte(categories), &post.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}

	post.CreatedAt = time.Unix(0, createdAt).UTC()
	post.Likes = []domain.UserID{}
	post.Comments = []domain.Comment{}

	return &post, nil
}

func (r *SQLitePostRepository) loadEngagement(ctx context.Context, post *domain.Post) error {
	likes, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY rowid", post.ID)
	if err != nil {
		return fmt.Errorf("query likes: %w", err)
	}
	defer likes.Close()

	for likes.Next() {
		var userID domain.UserID
		if err := likes.Scan(&userID); err != nil {
			return fmt.Errorf("scan like: %w", err)
		}

		post.Likes = append(post.Likes, userID)
	}

	if err := likes.Err(); err != nil {
		return fmt.Errorf("iterate likes: %w", err)
	}

	comments, err := r.db.QueryContext(ctx,
		"SELECT user_id, text, timestamp FROM post_comments WHERE post_id = ? ORDER BY id", post.ID)
	if err != nil {
		return fmt.Errorf("query comments: %w", err)
	}
	defer comments.Close()

	for comments.Next() {
		var (
			comment   domain.Comment
			timestamp int64
		)

		if err := comments.Scan(&comment.UserID, &comment.Text, &timestamp); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}

		comment.Timestamp = time.Unix(0, timestamp).UTC()
		post.Comments = append(post.Comments, comment)
	}

	if err := comments.Err(); err != nil {
		return fmt.Errorf("iterate comments: %w", err)
	}

	return nil
}

// GetPost implements Repository.GetPost.
func (r *SQLitePostRepository) GetPost(ctx context.Context, id domain.PostID) (*domain.Post, bool, error) {
	key, ok := canonicalID(id.String())
	if !ok {
		return nil, false, nil
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, selectPost+" WHERE id = ?", key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("query post: %w", err)
	}

	if err := r.loadEngagement(ctx, post); err != nil {
		return nil, false, err
	}

	return post, true, nil
}

// ListPostsByAuthor implements Repository.ListPostsByAuthor.
func (r *SQLitePostRepository) ListPostsByAuthor(ctx context.Context, author domain.UserID) ([]domain.Post, error) {
	authorID, err := userRef(author)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectPost+" WHERE author_id = ? ORDER BY id", authorID)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	posts := []domain.Post{}

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()

			return nil, fmt.Errorf("scan post: %w", err)
		}

		posts = append(posts, *post)
	}

	err = rows.Err()
	rows.Close()

	if err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	for i := range posts {
		if err := r.loadEngagement(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}

	return posts, nil
}

// AddLike implements Repository.AddLike.
func (r *SQLitePostRepository) AddLike(ctx context.Context, id domain.PostID, user domain.UserID) (bool, error) {
	userID, err := userRef(user)
	if err != nil {
		return false, err
	}

	key, ok := canonicalID(id.String())
	if !ok {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO post_likes (post_id, user_id)
		SELECT ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)
		ON CONFLICT DO NOTHING`,
		key, userID, key,
	)
	if err != nil {
		return false, fmt.Errorf("add like: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return n > 0, nil
}

// AddComment implements Repository.AddComment.
func (r *SQLitePostRepository) AddComment(ctx context.Context, id domain.PostID, comment domain.Comment) (bool, error) {
	userID, err := userRef(comment.UserID)
	if err != nil {
		return false, err
	}

	key, ok := canonicalID(id.String())
	if !ok {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO post_comments (post_id, user_id, text, timestamp)
		SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)`,
		key, userID, comment.Text, comment.Timestamp.UnixNano(), key,
	)
	if err != nil {
		return false, fmt.Errorf("add comment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	r.log.DebugContext(ctx, "comment inserted", "post_id", id, "found", n > 0)

	return n > 0, nil
}

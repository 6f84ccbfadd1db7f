package domain

import (
	"errors"
	"time"
)

var (
	// ErrPostNotFound is returned when a post does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrAlreadyLikedOrNotFound is returned when a like changed nothing: either the
	// post does not exist or the user already liked it. The store cannot tell the two apart.
	ErrAlreadyLikedOrNotFound = errors.New("already liked or post not found")
)

// Post is a user post with its embedded engagement.
type Post struct {
	ID         PostID    `json:"_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Image      *string   `json:"image"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
	AuthorID   UserID    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
	Likes      []UserID  `json:"likes"`
	Comments   []Comment `json:"comments"`
}

// Comment is appended to a post and never changed afterwards.
type Comment struct {
	UserID    UserID    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPost holds the client-supplied fields of a post.
type NewPost struct {
	Title      string
	Content    string
	Categories []string
	Tags       []string
}

// Upload is an image file received with a post.
type Upload struct {
	Filename string
	Data     []byte
}

package domain

import (
	"fmt"
	"strings"
)

// UserID identifies a user. The store decides the concrete format;
// outside the repositories it is only ever handled as an opaque string.
type UserID string

// PostID identifies a post.
type PostID string

// ParseUserID normalizes an externally supplied user id.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidID)
	}

	return UserID(s), nil
}

// ParsePostID normalizes an externally supplied post id.
func ParsePostID(s string) (PostID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty post id", ErrInvalidID)
	}

	return PostID(s), nil
}

func (id UserID) String() string {
	return string(id)
}

func (id PostID) String() string {
	return string(id)
}

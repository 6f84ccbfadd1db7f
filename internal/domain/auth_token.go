package domain

import (
	"errors"
	"time"
)

var (
	// ErrUnauthenticated is returned when a protected operation has no valid session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNoAuthToken is returned when the session cookie is absent.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrTokenExpired is returned when a token's expiry has elapsed.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid is returned when a token is malformed or its signature does not verify.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the identity carried by a session token.
type Claims struct {
	UserID    UserID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MessageResponse is the acknowledgement body returned by mutating endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

package blob

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/mkrupp/postboard/internal/domain"
)

// ErrInvalidKey is returned for object keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// Repository defines the interface for object storage.
type Repository interface {
	// Store uploads blob under blob.ID and returns the URL it is publicly reachable at.
	Store(ctx context.Context, blob *domain.Blob) (string, error)

	// Fetch downloads the object stored under id.
	// Returns ErrBlobNotFound if there is none.
	Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// CleanKey validates an object key: relative, slash-separated, no "." or ".." segments.
func CleanKey(id domain.BlobID) (string, error) {
	key := id.String()

	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}

	if path.Clean(key) != key {
		return "", ErrInvalidKey
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == "." || segment == ".." {
			return "", ErrInvalidKey
		}
	}

	return key, nil
}

package imagesvc

import (
	"context"

	"github.com/mkrupp/postboard/internal/domain"
)

// ImageService accepts post images and serves them back.
type ImageService interface {
	// Upload validates and stores an image and returns its public URL.
	// Invalid content yields one of the domain image errors, storage failures ErrUploadFailed.
	Upload(ctx context.Context, filename string, data []byte) (string, error)

	// Fetch returns the stored object under key or ErrBlobNotFound.
	Fetch(ctx context.Context, key domain.BlobID) (*domain.Blob, error)
}

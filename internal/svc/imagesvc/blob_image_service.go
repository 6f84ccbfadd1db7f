package imagesvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/repo/blob"
)

// KeyPrefix is the object store folder post images are stored in.
const KeyPrefix = "posts/"

// BlobImageService implements ImageService on top of an object store.
// Images wider than the configured maximum are scaled down before upload.
type BlobImageService struct {
	repo blob.Repository
	cfg  ImageConfig
	log  logging.Logger
}

var _ ImageService = (*BlobImageService)(nil)

// NewBlobImageService creates a new BlobImageService storing through the repository
// repoFactory creates. Returns an error if the interpolator is unknown or the
// repository cannot be created.
func NewBlobImageService(
	ctx context.Context,
	repoFactory blob.RepositoryFactory,
	cfg ImageConfig,
) (*BlobImageService, error) {
	if _, err := getInterpolatorByName(cfg.Interpolator); err != nil {
		return nil, err
	}

	repo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new blob repository: %w", err)
	}

	return &BlobImageService{
		repo: repo,
		cfg:  cfg,
		log:  logging.GetLogger("svc.imagesvc.blob_image_service"),
	}, nil
}

// Upload implements ImageService.Upload. The object key is "posts/<uuid><ext>" with the
// extension taken from the detected type; the client's filename is only logged.
func (imageSvc *BlobImageService) Upload(ctx context.Context, filename string, data []byte) (url string, err error) {
	log := imageSvc.log.With(logging.Group("image", "filename", filename, "size", len(data)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "image upload failed", "error", err)
		} else {
			log.DebugContext(ctx, "image uploaded", "url", url)
		}
	}()

	mimeType, err := imageSvc.checkUploadConstraints(data)
	if err != nil {
		return "", err
	}

	data, err = imageSvc.limitWidth(ctx, data, mimeType)
	if err != nil {
		return "", err
	}

	codec, err := getCodecByType(mimeType)
	if err != nil {
		return "", err
	}

	key := domain.BlobID(KeyPrefix + uuid.NewString() + codec.ext)
	log = log.With(logging.Group("image", "key", key, "type", mimeType))

	url, err = imageSvc.repo.Store(ctx, domain.NewBlob(key, mimeType, data))
	if err != nil {
		if !errors.Is(err, domain.ErrUploadFailed) {
			err = errors.Join(domain.ErrUploadFailed, err)
		}

		return "", fmt.Errorf("store: %w", err)
	}

	return url, nil
}

// Fetch implements ImageService.Fetch.
func (imageSvc *BlobImageService) Fetch(ctx context.Context, key domain.BlobID) (*domain.Blob, error) {
	object, err := imageSvc.repo.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	return object, nil
}

func (imageSvc *BlobImageService) checkUploadConstraints(data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrImageEmpty
	}

	if imageSvc.cfg.MaxSize > 0 && int64(len(data)) > imageSvc.cfg.MaxSize {
		return "", fmt.Errorf("%w: %d > %d bytes", domain.ErrImageTooLarge, len(data), imageSvc.cfg.MaxSize)
	}

	return detectImageType(data)
}

func (imageSvc *BlobImageService) limitWidth(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	width, err := imageWidth(data, mimeType)
	if err != nil {
		return nil, err
	}

	if imageSvc.cfg.MaxWidth <= 0 || width <= imageSvc.cfg.MaxWidth {
		return data, nil
	}

	resized, err := resizeImage(data, mimeType, imageSvc.cfg.MaxWidth, imageSvc.cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("resize image: %w", err)
	}

	imageSvc.log.DebugContext(ctx, "image resized", logging.Group("image",
		"type", mimeType,
		"width", width,
		logging.Group("target", "width", imageSvc.cfg.MaxWidth),
	))

	return resized, nil
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
)

// MediaPath is the route prefix the filesystem store's objects are served under.
const MediaPath = "/media/"

// FileSystemBlobRepositoryConfig holds configuration for the filesystem object store.
type FileSystemBlobRepositoryConfig struct {
	// Basedir is the root directory objects are stored under.
	Basedir string `env:"BASEDIR" default:"var/storage/blob"`

	// PublicURL is the externally visible base URL of this service.
	PublicURL string `env:"PUBLIC_URL" default:"http://localhost:8000"`
}

// FileSystemRepository implements Repository on the local filesystem.
// Objects are served back by the media route of the image transport.
type FileSystemRepository struct {
	cfg FileSystemBlobRepositoryConfig
	log logging.Logger
}

var _ Repository = (*FileSystemRepository)(nil)

// FileSystemBlobRepositoryFactory returns a RepositoryFactory for cfg.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, cfg)
	}
}

// NewFileSystemBlobRepository creates the base directory if needed.
func NewFileSystemBlobRepository(ctx context.Context, cfg FileSystemBlobRepositoryConfig) (*FileSystemRepository, error) {
	log := logging.GetLogger("repo.blob.filesystem_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir),
	)

	if err := os.MkdirAll(cfg.Basedir, 0o755); err != nil {
		log.ErrorContext(ctx, "init storage failed", "error", err)

		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return &FileSystemRepository{cfg: cfg, log: log}, nil
}

// GetFilename returns the filesystem path of the object stored under id.
func (fsRepo *FileSystemRepository) GetFilename(id domain.BlobID) (string, error) {
	key, err := CleanKey(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, id)
	}

	return filepath.Join(fsRepo.cfg.Basedir, filepath.FromSlash(key)), nil
}

// PublicURL returns the URL the object is served at.
func (fsRepo *FileSystemRepository) PublicURL(id domain.BlobID) string {
	segments := strings.Split(id.String(), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return fsRepo.cfg.PublicURL + MediaPath + strings.Join(segments, "/")
}

// Store implements Repository.Store. The object is written to a temporary file
// and renamed into place, so readers never see a partial object.
func (fsRepo *FileSystemRepository) Store(ctx context.Context, blob *domain.Blob) (_ string, err error) {
	log := fsRepo.log.With(logging.Group("blob", "id", blob.ID, "size", blob.Size()))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored")
		}
	}()

	filename, err := fsRepo.GetFilename(blob.ID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return "", fmt.Errorf("mkdir all: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := blob.WriteTo(tmp); err != nil {
		_ = tmp.Close()

		return "", fmt.Errorf("write: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return "", fmt.Errorf("sync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}

	return fsRepo.PublicURL(blob.ID), nil
}

// Fetch implements Repository.Fetch. The content type is derived from the key's
// extension, falling back to content sniffing.
func (fsRepo *FileSystemRepository) Fetch(ctx context.Context, id domain.BlobID) (_ *domain.Blob, err error) {
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			fsRepo.log.ErrorContext(ctx, "blob fetch failed", "id", id, "error", err)
		}
	}()

	filename, err := fsRepo.GetFilename(id)
	if err != nil {
		return nil, errors.Join(domain.ErrBlobNotFound, err)
	}

	body, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.Join(domain.ErrBlobNotFound, err)
		}

		return nil, fmt.Errorf("read: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return domain.NewBlob(id, contentType, body), nil
}

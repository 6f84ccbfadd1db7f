package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkrupp/postboard/internal/domain"
	context_ "github.com/mkrupp/postboard/internal/infra/context"
	"github.com/mkrupp/postboard/internal/infra/logging"
)

const TraceIDHeader = "X-Request-ID"

// ErrNotConfigured is returned when the Supabase URL or key is missing.
var ErrNotConfigured = errors.New("supabase storage not configured")

// SupabaseBlobRepositoryConfig holds configuration for Supabase Storage.
type SupabaseBlobRepositoryConfig struct {
	// URL is the project URL, e.g. https://abc.supabase.co.
	URL string `env:"URL" default:""`

	// Key is the service or anon key used as bearer token.
	Key string `env:"KEY" default:""`

	// Bucket holds the uploaded objects and must be public for the returned URLs to work.
	Bucket string `env:"BUCKET" default:"post-images"`

	// Timeout for a single storage request, in seconds.
	Timeout int64 `env:"TIMEOUT" default:"30"`
}

// SupabaseRepository implements Repository with the Supabase Storage REST API.
type SupabaseRepository struct {
	httpClient *http.Client
	baseURL    string
	cfg        SupabaseBlobRepositoryConfig
	log        logging.Logger
}

var _ Repository = (*SupabaseRepository)(nil)

// SupabaseBlobRepositoryFactory returns a RepositoryFactory for cfg.
func SupabaseBlobRepositoryFactory(cfg SupabaseBlobRepositoryConfig, httpClient *http.Client) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSupabaseBlobRepository(cfg, httpClient)
	}
}

// NewSupabaseBlobRepository creates a repository. If httpClient is nil a client
// with cfg.Timeout is used.
func NewSupabaseBlobRepository(cfg SupabaseBlobRepositoryConfig, httpClient *http.Client) (*SupabaseRepository, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" || cfg.Key == "" {
		return nil, ErrNotConfigured
	}

	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: url: %w", ErrNotConfigured, err)
	}

	if httpClient == nil {
		//nolint:exhaustruct
		httpClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}

	return &SupabaseRepository{
		httpClient: httpClient,
		baseURL:    baseURL,
		cfg:        cfg,
		log: logging.GetLogger("repo.blob.supabase_repository").With(
			logging.Group("repo", "url", baseURL, "bucket", cfg.Bucket),
		),
	}, nil
}

func (r *SupabaseRepository) objectPath(kind string, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return r.baseURL + "/storage/v1/object/" + kind + url.PathEscape(r.cfg.Bucket) + "/" + strings.Join(segments, "/")
}

// PublicURL returns the public download URL of key.
func (r *SupabaseRepository) PublicURL(key string) string {
	return r.objectPath("public/", key)
}

func (r *SupabaseRepository) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+r.cfg.Key)
	req.Header.Set("apikey", r.cfg.Key)

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	return req, nil
}

// storageError is the error body returned by the storage API.
type storageError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// readStorageError builds an error from a failed response. The storage API reports
// missing objects either as a 404 or as a 400 whose body carries statusCode "404".
func readStorageError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(body))

	var serr storageError
	if err := json.Unmarshal(body, &serr); err == nil && serr.Message != "" {
		msg = serr.Message
	}

	err := fmt.Errorf("storage responded %d: %s", resp.StatusCode, msg) //nolint:err113

	if resp.StatusCode == http.StatusNotFound || serr.StatusCode == "404" {
		return errors.Join(domain.ErrBlobNotFound, err)
	}

	return err
}

// Store implements Repository.Store.
func (r *SupabaseRepository) Store(ctx context.Context, blob *domain.Blob) (_ string, err error) {
	log := r.log.With(logging.Group("blob", "id", blob.ID, "size", blob.Size()))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "blob upload failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob uploaded")
		}
	}()

	key, err := CleanKey(blob.ID)
	if err != nil {
		return "", err
	}

	req, err := r.newRequest(ctx, http.MethodPost, r.objectPath("", key), bytes.NewReader(blob.Body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", blob.ContentType)
	req.Header.Set("x-upsert", "false")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", errors.Join(domain.ErrUploadFailed, fmt.Errorf("post: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Join(domain.ErrUploadFailed, readStorageError(resp))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return r.PublicURL(key), nil
}

// Fetch implements Repository.Fetch.
func (r *SupabaseRepository) Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error) {
	key, err := CleanKey(id)
	if err != nil {
		return nil, errors.Join(domain.ErrBlobNotFound, err)
	}

	req, err := r.newRequest(ctx, http.MethodGet, r.objectPath("", key), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readStorageError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return domain.NewBlob(id, resp.Header.Get("Content-Type"), body), nil
}

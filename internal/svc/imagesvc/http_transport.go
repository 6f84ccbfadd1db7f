package imagesvc

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	http_ "github.com/mkrupp/postboard/internal/infra/transport/http"
	"github.com/mkrupp/postboard/internal/repo/blob"
)

// HTTPTransportConfig contains configuration parameters for the media route.
type HTTPTransportConfig struct {
	// CacheMaxAge is the Cache-Control max-age of served objects in seconds.
	// Object keys are never reused, so objects can be cached for long.
	CacheMaxAge int64 `env:"CACHE_MAX_AGE" default:"86400"`
}

// HTTPTransport serves stored objects under blob.MediaPath for object stores
// that have no public endpoint of their own.
type HTTPTransport struct {
	imageSvc ImageService
	log      logging.Logger
	cfg      HTTPTransportConfig
	mux      *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// Routes:
//   - GET /media/{key...}: download the object stored under key
func NewHTTPTransport(imageSvc ImageService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		imageSvc: imageSvc,
		log:      logging.GetLogger("svc.imagesvc.http_transport"),
		cfg:      cfg,
		mux:      http.NewServeMux(),
	}

	ht.mux.HandleFunc("GET "+blob.MediaPath+"{key...}", ht.HandleDownload)

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleDownload writes the object named by the key path parameter.
func (ht *HTTPTransport) HandleDownload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDownload(w, r)
}

func (ht *HTTPTransport) handleDownload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "media download failed", "error", err)
		} else {
			log.DebugContext(ctx, "media downloaded")
		}
	}(r.Context())

	key := domain.BlobID(r.PathValue("key"))
	log = log.With(logging.Group("media", "key", key))

	if _, err := blob.CleanKey(key); err != nil {
		http_.WriteError(w, domain.ErrBlobNotFound)

		return fmt.Errorf("clean key: %w", err)
	}

	object, err := ht.imageSvc.Fetch(r.Context(), key)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("fetch: %w", err)
	}

	w.Header().Set("Content-Type", object.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(object.Size(), 10))
	w.Header().Set("Cache-Control", "public, max-age="+strconv.FormatInt(ht.cfg.CacheMaxAge, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := object.WriteTo(w); err != nil {
		return fmt.Errorf("write to: %w", err)
	}

	return nil
}

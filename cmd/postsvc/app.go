package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/repo/blob"
	"github.com/mkrupp/postboard/internal/svc/authsvc"
	"github.com/mkrupp/postboard/internal/svc/healthsvc"
	"github.com/mkrupp/postboard/internal/svc/imagesvc"
	"github.com/mkrupp/postboard/internal/svc/postsvc"
)

// ErrUnknownDriver is returned for an unsupported STORE_DRIVER or OBJECTSTORE_DRIVER.
var ErrUnknownDriver = errors.New("unknown driver")

// app is the wired service: one handler for all routes and the store behind it.
type app struct {
	handler http.Handler
	store   *store
}

func newApp(ctx context.Context, cfg Config) (_ *app, err error) {
	log := logging.GetLogger("cmd.postsvc")

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = st.Close(ctx)
		}
	}()

	tokens := authsvc.NewTokenService(cfg.Token)
	if cfg.Token.UsesDefaultSecret() {
		log.WarnContext(ctx, "JWT_SECRET not set, signing tokens with the built-in default secret")
	}

	authSvc, err := authsvc.NewAuthService(st.users, tokens, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("new auth service: %w", err)
	}

	sessions := authsvc.NewSessionExtractor(tokens, authsvc.DefaultCookieName)

	mux := http.NewServeMux()

	authTransport := authsvc.NewHTTPTransport(authSvc, sessions)
	mux.Handle(authsvc.BasePath+"/", authTransport)

	imageSvc, err := newImageService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// a nil uploader keeps text posts working and fails image uploads
	var images postsvc.ImageUploader
	if imageSvc != nil {
		images = imageSvc

		if cfg.ObjectStoreDriver == ObjectStoreDriverFilesystem {
			mux.Handle(blob.MediaPath, imagesvc.NewHTTPTransport(imageSvc, cfg.Media))
		}
	}

	postSvc, err := postsvc.NewPostService(st.posts, st.users, images)
	if err != nil {
		return nil, fmt.Errorf("new post service: %w", err)
	}

	postTransport := postsvc.NewHTTPTransport(postSvc, sessions, cfg.Posts)
	mux.Handle(postsvc.BasePath, postTransport)
	mux.Handle(postsvc.BasePath+"/", postTransport)

	healthTransport := healthsvc.NewHTTPTransport(healthsvc.NewHealthService(st))
	mux.Handle("/health", healthTransport)
	mux.Handle("/ready", healthTransport)

	return &app{handler: mux, store: st}, nil
}

// newImageService returns nil without error when Supabase is selected but not configured.
func newImageService(ctx context.Context, cfg Config) (*imagesvc.BlobImageService, error) {
	var factory blob.RepositoryFactory

	switch cfg.ObjectStoreDriver {
	case ObjectStoreDriverSupabase:
		factory = blob.SupabaseBlobRepositoryFactory(cfg.Supabase, nil)
	case ObjectStoreDriverFilesystem:
		factory = blob.FileSystemBlobRepositoryFactory(cfg.Blob)
	default:
		return nil, fmt.Errorf("%w: OBJECTSTORE_DRIVER=%q", ErrUnknownDriver, cfg.ObjectStoreDriver)
	}

	imageSvc, err := imagesvc.NewBlobImageService(ctx, factory, cfg.Image)
	if errors.Is(err, blob.ErrNotConfigured) {
		logging.GetLogger("cmd.postsvc").WarnContext(ctx,
			"SUPABASE_URL or SUPABASE_KEY not set, image uploads will fail")

		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("new image service: %w", err)
	}

	return imageSvc, nil
}

func (a *app) Close(ctx context.Context) error {
	if err := a.store.Close(ctx); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}

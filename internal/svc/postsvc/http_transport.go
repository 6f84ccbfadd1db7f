package postsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mkrupp/postboard/internal/domain"
	context_ "github.com/mkrupp/postboard/internal/infra/context"
	"github.com/mkrupp/postboard/internal/infra/logging"
	http_ "github.com/mkrupp/postboard/internal/infra/transport/http"
)

// BasePath is where the post routes are mounted.
const BasePath = "/api/v1/posts"

// HTTPTransportConfig contains configuration parameters for the post routes.
type HTTPTransportConfig struct {
	// MultipartFormMaxMemory is the part of a multipart form kept in memory; the rest
	// is buffered in temporary files.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_SIZE" default:"10485760"`

	// MaxBodySize caps the size of a request body.
	MaxBodySize int64 `env:"MAX_BODY_SIZE" default:"12582912"`

	// MultipartFileName is the form field the post image is sent in.
	MultipartFileName string `env:"MULTIPART_FILE_NAME" default:"image"`
}

// HTTPTransport serves the post endpoints under BasePath. Every route needs a session.
type HTTPTransport struct {
	postSvc *PostService
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport. Routes:
//   - POST / : create a post from a multipart form
//   - GET /me : the caller's posts
//   - GET /{post_id} : one post
//   - PUT /{post_id}/like : like a post
//   - POST /{post_id}/comment : comment on a post
func NewHTTPTransport(postSvc *PostService, sessions http_.SessionResolver, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		postSvc: postSvc,
		log:     logging.GetLogger("svc.postsvc.http_transport"),
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	authed := func(h http.HandlerFunc) http.Handler {
		return http_.SessionMiddleware(h, sessions, ht.log)
	}

	ht.mux.Handle("POST "+BasePath, authed(ht.HandleCreate))
	ht.mux.Handle("POST "+BasePath+"/{$}", authed(ht.HandleCreate))
	ht.mux.Handle("GET "+BasePath+"/me", authed(ht.HandleListMine))
	ht.mux.Handle("GET "+BasePath+"/{post_id}", authed(ht.HandleGet))
	ht.mux.Handle("PUT "+BasePath+"/{post_id}/like", authed(ht.HandleLike))
	ht.mux.Handle("POST "+BasePath+"/{post_id}/comment", authed(ht.HandleComment))

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// reply writes err as an error response. A response that already started can only
// be logged.
func (ht *HTTPTransport) reply(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, http_.ErrResponseStarted) {
		ht.log.ErrorContext(r.Context(), "write response failed", "error", err)
	} else if err != nil {
		http_.WriteError(w, err)
	}
}

func sessionUser(r *http.Request) (domain.UserID, error) {
	id, ok := context_.UserIDFromContext(r.Context())
	if !ok {
		return "", domain.ErrUnauthenticated
	}

	return id, nil
}

// parseForm reads a multipart or urlencoded body.
func (ht *HTTPTransport) parseForm(w http.ResponseWriter, r *http.Request) error {
	if ht.cfg.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodySize)
	}

	err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}

	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Join(domain.ErrImageTooLarge, err)
		}

		return domain.Invalidf("malformed form: %v", err)
	}

	return nil
}

func requiredValue(r *http.Request, name string) (string, error) {
	if _, ok := r.Form[name]; !ok {
		return "", domain.Invalidf("%s is required", name)
	}

	return r.FormValue(name), nil
}

func (ht *HTTPTransport) readUpload(r *http.Request) (*domain.Upload, error) {
	file, header, err := r.FormFile(ht.cfg.MultipartFileName)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	} else if err != nil {
		return nil, domain.Invalidf("read image: %v", err)
	}
	defer file.Close()

	// browsers send an empty part when no file was chosen
	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	return &domain.Upload{Filename: header.Filename, Data: data}, nil
}

// HandleCreate creates a post from the form fields title, content, categories, tags
// and an optional image file.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleCreate(w, r))
}

//nolint:cyclop
func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "post create failed", "error", err)
		} else {
			log.DebugContext(ctx, "post created")
		}
	}(r.Context())

	author, err := sessionUser(r)
	if err != nil {
		return err
	}

	if err := ht.parseForm(w, r); err != nil {
		return err
	}

	title, err := requiredValue(r, "title")
	if err != nil {
		return err
	}

	content, err := requiredValue(r, "content")
	if err != nil {
		return err
	}

	categories, err := tagListValue(r, "categories")
	if err != nil {
		return err
	}

	tags, err := tagListValue(r, "tags")
	if err != nil {
		return err
	}

	fields := domain.NewPost{
		Title:      title,
		Content:    content,
		Categories: categories,
		Tags:       tags,
	}

	upload, err := ht.readUpload(r)
	if err != nil {
		return err
	}

	created, err := ht.postSvc.CreatePost(r.Context(), author, fields, upload)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, created)
}

// tagListValue parses an optional tag list field; an absent field is an empty list.
func tagListValue(r *http.Request, name string) ([]string, error) {
	if _, ok := r.Form[name]; !ok {
		return []string{}, nil
	}

	list, err := ParseTagList(r.FormValue(name))
	if err != nil {
		return nil, domain.Invalidf("%s must be a list of strings", name)
	}

	return list, nil
}

// HandleListMine returns the posts of the signed-in user.
func (ht *HTTPTransport) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleListMine(w, r))
}

func (ht *HTTPTransport) handleListMine(w http.ResponseWriter, r *http.Request) error {
	author, err := sessionUser(r)
	if err != nil {
		return err
	}

	posts, err := ht.postSvc.ListPostsByAuthor(r.Context(), author)
	if err != nil {
		return err
	}

	return http_.WriteJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleGet(w, r))
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) error {
	id, err := domain.ParsePostID(r.PathValue("post_id"))
	if err != nil {
		return err
	}

	found, err := ht.postSvc.GetPost(r.Context(), id)
	if err != nil {
		return err
	}

	return http_.WriteJSON(w, http.StatusOK, found)
}

// HandleLike adds the signed-in user to the likes of a post.
func (ht *HTTPTransport) HandleLike(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleLike(w, r))
}

func (ht *HTTPTransport) handleLike(w http.ResponseWriter, r *http.Request) error {
	user, err := sessionUser(r)
	if err != nil {
		return err
	}

	id, err := domain.ParsePostID(r.PathValue("post_id"))
	if err != nil {
		return err
	}

	if err := ht.postSvc.LikePost(r.Context(), id, user); err != nil {
		return fmt.Errorf("like post: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Post liked"})
}

// HandleComment appends the form field text as a comment by the signed-in user.
func (ht *HTTPTransport) HandleComment(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleComment(w, r))
}

func (ht *HTTPTransport) handleComment(w http.ResponseWriter, r *http.Request) error {
	user, err := sessionUser(r)
	if err != nil {
		return err
	}

	id, err := domain.ParsePostID(r.PathValue("post_id"))
	if err != nil {
		return err
	}

	if err := ht.parseForm(w, r); err != nil {
		return err
	}

	text, err := requiredValue(r, "text")
	if err != nil {
		return err
	}

	if err := ht.postSvc.CommentPost(r.Context(), id, user, text); err != nil {
		return fmt.Errorf("comment post: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Comment added"})
}

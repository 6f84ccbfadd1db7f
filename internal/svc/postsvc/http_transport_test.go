package postsvc_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/svc/postsvc"
)

// stubSessions resolves every request to the same user, or fails with err.
type stubSessions struct {
	user domain.UserID
	err  error
}

func (s stubSessions) Resolve(*http.Request) (domain.Claims, error) {
	if s.err != nil {
		return domain.Claims{}, s.err
	}

	//nolint:exhaustruct
	return domain.Claims{UserID: s.user, Email: "ann@example.com"}, nil
}

func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (string, string) {
	t.Helper()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}

	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)

		_, err = part.Write(file)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.String(), writer.FormDataContentType()
}

var testTransportConfig = postsvc.HTTPTransportConfig{
	MultipartFormMaxMemory: 1 << 20,
	MaxBodySize:            2 << 20,
	MultipartFileName:      "image",
}

// setupTestTransport returns a handler whose session belongs to a stored user.
func setupTestTransport(t *testing.T) (http.Handler, *mockUploader, domain.UserID) {
	t.Helper()

	svc, uploader := setupTestService(t)
	ann := addAuthor(t, svc, "Ann")

	return postsvc.NewHTTPTransport(svc, stubSessions{user: ann}, testTransportConfig), uploader, ann
}

func createPost(t *testing.T, handler http.Handler, body, contentType string) string {
	t.Helper()

	var created domain.Post

	apitest.New().
		Handler(handler).
		Post("/api/v1/posts").
		Body(body).
		ContentType(contentType).
		Expect(t).
		Status(http.StatusOK).
		End().
		JSON(&created)

	require.NotEmpty(t, created.ID)

	return created.ID.String()
}

func TestHTTPTransport_CreatePost(t *testing.T) {
	t.Parallel()

	handler, uploader, ann := setupTestTransport(t)

	body, contentType := multipartBody(t, map[string]string{
		"title":      "Hello",
		"content":    "First post",
		"categories": `["news"]`,
		"tags":       "a, b,,c",
	}, "pic.png", []byte("png"))

	apitest.New().
		Handler(handler).
		Post("/api/v1/posts/").
		Body(body).
		ContentType(contentType).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.title`, "Hello")).
		Assert(jsonpath.Equal(`$.author_id`, ann.String())).
		Assert(jsonpath.Equal(`$.image`, "https://cdn.example.com/posts/pic.png")).
		Assert(jsonpath.Equal(`$.categories`, []any{"news"})).
		Assert(jsonpath.Equal(`$.tags`, []any{"a", "b", "c"})).
		Assert(jsonpath.Len(`$.likes`, 0)).
		Assert(jsonpath.Len(`$.comments`, 0)).
		End()

	require.Len(t, uploader.uploads, 1)

	// urlencoded forms carry no image
	var plain domain.Post

	apitest.New().
		Handler(handler).
		Post("/api/v1/posts").
		FormData("title", "Plain").
		FormData("content", "no picture").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len(`$.tags`, 0)).
		End().
		JSON(&plain)

	require.Nil(t, plain.Image)

	apitest.New().
		Handler(handler).
		Get("/api/v1/posts/me").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len(`$`, 2)).
		End()
}

func TestHTTPTransport_CreatePostValidation(t *testing.T) {
	t.Parallel()

	handler, _, _ := setupTestTransport(t)

	tests := []struct {
		name       string
		fields     map[string]string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "missing title",
			fields:     map[string]string{"content": "x"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "title is required",
		},
		{
			name:       "missing content",
			fields:     map[string]string{"title": "x"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "content is required",
		},
		{
			name:       "blank title",
			fields:     map[string]string{"title": " ", "content": "x"},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "title is required",
		},
		{
			name:       "tags with a number",
			fields:     map[string]string{"title": "x", "content": "x", "tags": `["a", 1]`},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "tags must be a list of strings",
		},
		{
			name:       "categories as an object",
			fields:     map[string]string{"title": "x", "content": "x", "categories": `{"x": "y"}`},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "categories must be a list of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, contentType := multipartBody(t, tt.fields, "", nil)

			apitest.New().
				Handler(handler).
				Post("/api/v1/posts").
				Body(body).
				ContentType(contentType).
				Expect(t).
				Status(tt.wantStatus).
				Assert(jsonpath.Equal(`$.detail`, tt.wantDetail)).
				End()
		})
	}
}

func TestHTTPTransport_LikeAndComment(t *testing.T) {
	t.Parallel()

	handler, _, _ := setupTestTransport(t)

	body, contentType := multipartBody(t, map[string]string{"title": "Hi", "content": "x"}, "", nil)
	id := createPost(t, handler, body, contentType)

	apitest.New().
		Handler(handler).
		Put("/api/v1/posts/" + id + "/like").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, "Post liked")).
		End()

	apitest.New().
		Handler(handler).
		Put("/api/v1/posts/" + id + "/like").
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal(`$.detail`, "Already liked or post not found")).
		End()

	apitest.New().
		Handler(handler).
		Post("/api/v1/posts/" + id + "/comment").
		FormData("text", "Nice").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, "Comment added")).
		End()

	apitest.New().
		Handler(handler).
		Post("/api/v1/posts/" + id + "/comment").
		FormData("text", "").
		Expect(t).
		Status(http.StatusUnprocessableEntity).
		End()

	apitest.New().
		Handler(handler).
		Get("/api/v1/posts/" + id).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len(`$.likes`, 1)).
		Assert(jsonpath.Len(`$.comments`, 1)).
		Assert(jsonpath.Equal(`$.comments[0].text`, "Nice")).
		End()

	apitest.New().
		Handler(handler).
		Get("/api/v1/posts/" + newUserID().String()).
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal(`$.detail`, "Post not found")).
		End()
}

func TestHTTPTransport_RequiresSession(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestService(t)
	handler := postsvc.NewHTTPTransport(svc, stubSessions{err: domain.ErrNoAuthToken}, postsvc.HTTPTransportConfig{})

	for _, path := range []string{"/api/v1/posts/me", "/api/v1/posts/abc"} {
		apitest.New().
			Handler(handler).
			Get(path).
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Equal(`$.detail`, "Not authenticated")).
			End()
	}
}

func TestHTTPTransport_CreatePostDeletedAccount(t *testing.T) {
	t.Parallel()

	svc, uploader := setupTestService(t)
	ann := addAuthor(t, svc, "Ann")
	handler := postsvc.NewHTTPTransport(svc, stubSessions{user: ann}, testTransportConfig)

	_, err := svc.UserRepo.DeleteUser(context.Background(), ann)
	require.NoError(t, err)

	body, contentType := multipartBody(t, map[string]string{"title": "Hi", "content": "x"}, "pic.png", []byte("png"))

	apitest.New().
		Handler(handler).
		Post("/api/v1/posts").
		Body(body).
		ContentType(contentType).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal(`$.detail`, "Not authenticated")).
		End()

	require.Empty(t, uploader.uploads)
}

package imagesvc_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/svc/imagesvc"
)

func TestHTTPTransport_Download(t *testing.T) {
	t.Parallel()

	svc := setupTestService(t, imagesvc.ImageConfig{MaxSize: 1 << 20})
	data := testImage(t, 8, 8, encodePNG)

	url, err := svc.Upload(context.Background(), "dot.png", data)
	require.NoError(t, err)

	key := keyFromURL(t, url)
	handler := imagesvc.NewHTTPTransport(svc, imagesvc.HTTPTransportConfig{CacheMaxAge: 60})

	apitest.New().
		Handler(handler).
		Get("/media/" + key.String()).
		Expect(t).
		Status(http.StatusOK).
		Header("Content-Type", imagesvc.MIMETypePNG).
		Header("Cache-Control", "public, max-age=60").
		Body(string(data)).
		End()

	apitest.New().
		Handler(handler).
		Get("/media/posts/missing.png").
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal(`$.detail`, "Not found")).
		End()
}

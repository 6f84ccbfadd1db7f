package imagesvc_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/repo/blob"
	"github.com/mkrupp/postboard/internal/svc/imagesvc"
)

func testImage(t *testing.T, width, height int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}

	var buffer bytes.Buffer
	require.NoError(t, encode(&buffer, img))

	return buffer.Bytes()
}

func encodePNG(b *bytes.Buffer, img image.Image) error  { return png.Encode(b, img) }
func encodeJPEG(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) }

func setupTestService(t *testing.T, cfg imagesvc.ImageConfig) *imagesvc.BlobImageService {
	t.Helper()

	if cfg.Interpolator == "" {
		cfg.Interpolator = "catmullrom"
	}

	factory := blob.FileSystemBlobRepositoryFactory(blob.FileSystemBlobRepositoryConfig{
		Basedir:   t.TempDir(),
		PublicURL: "http://localhost:8000",
	})

	svc, err := imagesvc.NewBlobImageService(context.Background(), factory, cfg)
	require.NoError(t, err)

	return svc
}

func keyFromURL(t *testing.T, url string) domain.BlobID {
	t.Helper()

	key, ok := strings.CutPrefix(url, "http://localhost:8000"+blob.MediaPath)
	require.True(t, ok, url)

	return domain.BlobID(key)
}

func TestBlobImageService_Upload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := setupTestService(t, imagesvc.ImageConfig{MaxSize: 1 << 20, MaxWidth: 64})

	small := testImage(t, 32, 16, encodePNG)
	wide := testImage(t, 128, 64, encodePNG)
	photo := testImage(t, 200, 100, encodeJPEG)

	tests := []struct {
		name      string
		filename  string
		data      []byte
		wantType  string
		wantExt   string
		wantWidth int
		wantErr   error
	}{
		{
			name:      "small png is stored as uploaded",
			filename:  "small.png",
			data:      small,
			wantType:  imagesvc.MIMETypePNG,
			wantExt:   ".png",
			wantWidth: 32,
		},
		{
			name:      "wide png is scaled down",
			filename:  "wide.png",
			data:      wide,
			wantType:  imagesvc.MIMETypePNG,
			wantExt:   ".png",
			wantWidth: 64,
		},
		{
			name:      "type comes from content not filename",
			filename:  "photo.png",
			data:      photo,
			wantType:  imagesvc.MIMETypeJPEG,
			wantExt:   ".jpg",
			wantWidth: 64,
		},
		{
			name:     "empty upload",
			filename: "empty.png",
			data:     []byte{},
			wantErr:  domain.ErrImageEmpty,
		},
		{
			name:     "not an image",
			filename: "notes.png",
			data:     []byte("just some text"),
			wantErr:  domain.ErrImageTypeNotSupported,
		},
		{
			name:     "gif is not supported",
			filename: "anim.gif",
			data:     []byte("GIF89a\x01\x00\x01\x00"),
			wantErr:  domain.ErrImageTypeNotSupported,
		},
		{
			name:     "truncated png",
			filename: "broken.png",
			data:     small[:12],
			wantErr:  domain.ErrImageInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			url, err := svc.Upload(ctx, tt.filename, tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, url)

				return
			}

			require.NoError(t, err)

			key := keyFromURL(t, url)
			assert.True(t, strings.HasPrefix(key.String(), imagesvc.KeyPrefix), key)
			assert.True(t, strings.HasSuffix(key.String(), tt.wantExt), key)

			object, err := svc.Fetch(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, object.ContentType)

			cfg, _, err := image.DecodeConfig(bytes.NewReader(object.Body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, cfg.Width)
		})
	}
}

func TestBlobImageService_UploadKeysAreUnique(t *testing.T) {
	t.Parallel()

	svc := setupTestService(t, imagesvc.ImageConfig{MaxSize: 1 << 20})
	data := testImage(t, 8, 8, encodePNG)

	first, err := svc.Upload(context.Background(), "a.png", data)
	require.NoError(t, err)

	second, err := svc.Upload(context.Background(), "a.png", data)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBlobImageService_UploadTooLarge(t *testing.T) {
	t.Parallel()

	svc := setupTestService(t, imagesvc.ImageConfig{MaxSize: 64})

	_, err := svc.Upload(context.Background(), "big.png", testImage(t, 32, 32, encodePNG))
	require.ErrorIs(t, err, domain.ErrImageTooLarge)
}

func TestBlobImageService_UploadWithoutWidthLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := setupTestService(t, imagesvc.ImageConfig{MaxSize: 1 << 20, MaxWidth: 0})

	url, err := svc.Upload(ctx, "wide.png", testImage(t, 300, 10, encodePNG))
	require.NoError(t, err)

	object, err := svc.Fetch(ctx, keyFromURL(t, url))
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(object.Body))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
}

type failingRepository struct {
	err error
}

func (r failingRepository) Store(context.Context, *domain.Blob) (string, error) {
	return "", r.err
}

func (r failingRepository) Fetch(context.Context, domain.BlobID) (*domain.Blob, error) {
	return nil, domain.ErrBlobNotFound
}

func TestBlobImageService_UploadFailure(t *testing.T) {
	t.Parallel()

	errDisk := errors.New("disk full")

	svc, err := imagesvc.NewBlobImageService(context.Background(),
		func(context.Context) (blob.Repository, error) { return failingRepository{err: errDisk}, nil },
		imagesvc.ImageConfig{MaxSize: 1 << 20, Interpolator: "bilinear"})
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), "a.png", testImage(t, 4, 4, encodePNG))
	require.ErrorIs(t, err, domain.ErrUploadFailed)
	require.ErrorIs(t, err, errDisk)
}

func TestNewBlobImageService(t *testing.T) {
	t.Parallel()

	_, err := imagesvc.NewBlobImageService(context.Background(),
		func(context.Context) (blob.Repository, error) { return failingRepository{}, nil },
		imagesvc.ImageConfig{Interpolator: "sharpest"})
	require.ErrorIs(t, err, imagesvc.ErrUnknownInterpolator)

	errRepo := errors.New("no bucket")

	_, err = imagesvc.NewBlobImageService(context.Background(),
		func(context.Context) (blob.Repository, error) { return nil, errRepo },
		imagesvc.ImageConfig{Interpolator: "catmullrom"})
	require.ErrorIs(t, err, errRepo)
}

package imagesvc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/tiff"

	"github.com/mkrupp/postboard/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeTIFF = "image/tiff"
)

type imageCodec struct {
	ext          string
	headers      []string
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
	encode       func(io.Writer, image.Image) error
}

//nolint:gochecknoglobals
var imageCodecs = map[string]imageCodec{
	MIMETypeJPEG: {
		ext:          ".jpg",
		headers:      []string{"\xFF\xD8\xFF"},
		decode:       jpeg.Decode,
		decodeConfig: jpeg.DecodeConfig,
		encode:       func(w io.Writer, i image.Image) error { return jpeg.Encode(w, i, &jpeg.Options{Quality: 90}) },
	},
	MIMETypePNG: {
		ext:          ".png",
		headers:      []string{"\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"},
		decode:       png.Decode,
		decodeConfig: png.DecodeConfig,
		encode:       png.Encode,
	},
	MIMETypeTIFF: {
		ext:          ".tiff",
		headers:      []string{"\x49\x49\x2A\x00", "\x4D\x4D\x00\x2A"},
		decode:       tiff.Decode,
		decodeConfig: tiff.DecodeConfig,
		encode:       func(w io.Writer, i image.Image) error { return tiff.Encode(w, i, nil) },
	},
}

// detectImageType returns the MIME type the leading bytes of data identify.
// The client's filename and content type are not trusted.
func detectImageType(data []byte) (string, error) {
	for mimeType, codec := range imageCodecs {
		for _, header := range codec.headers {
			if bytes.HasPrefix(data, []byte(header)) {
				return mimeType, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, sniff(data))
}

func sniff(data []byte) string {
	if len(data) > 8 {
		data = data[:8]
	}

	return string(data)
}

func getCodecByType(mimeType string) (imageCodec, error) {
	codec, ok := imageCodecs[mimeType]
	if !ok {
		return imageCodec{}, fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimeType)
	}

	return codec, nil
}

package imagesvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/mkrupp/postboard/internal/domain"
)

// ErrUnknownInterpolator is returned when an unsupported interpolation method is specified.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var (
	// interpolMap maps interpolator names to their implementations.
	// Supported values: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear".
	interpolMap = map[string]draw.Interpolator{
		"nearestneighbor": draw.NearestNeighbor,
		"catmullrom":      draw.CatmullRom,
		"bilinear":        draw.BiLinear,
		"approxbilinear":  draw.ApproxBiLinear,
	}
)

func getInterpolatorByName(name string) (draw.Interpolator, error) {
	interpol, ok := interpolMap[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolator, name)
	}

	return interpol, nil
}

// imageWidth reads the width from the image header without decoding the pixels.
func imageWidth(data []byte, mimeType string) (int, error) {
	codec, err := getCodecByType(mimeType)
	if err != nil {
		return 0, err
	}

	cfg, err := codec.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, errors.Join(domain.ErrImageInvalid, err)
	}

	return cfg.Width, nil
}

// resizeImage scales an image to width, keeping its aspect ratio and format.
func resizeImage(data []byte, mimeType string, width int, interpolator string) ([]byte, error) {
	interpol, err := getInterpolatorByName(interpolator)
	if err != nil {
		return nil, err
	}

	codec, err := getCodecByType(mimeType)
	if err != nil {
		return nil, err
	}

	original, err := codec.decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Join(domain.ErrImageInvalid, fmt.Errorf("decode image: %w", err))
	}

	bounds := original.Bounds()
	height := max(1, bounds.Dy()*width/bounds.Dx())

	bitmap := image.NewRGBA(image.Rect(0, 0, width, height))
	interpol.Scale(bitmap, bitmap.Bounds(), original, bounds, draw.Over, nil)

	var buffer bytes.Buffer
	if err := codec.encode(&buffer, bitmap); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buffer.Bytes(), nil
}

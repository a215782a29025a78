package imagesvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"golang.org/x/image/draw"
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

// downscale shrinks an image to maxWidth while maintaining aspect ratio.
// Images that are not wider than maxWidth are returned unchanged, with
// resized == false.
func downscale(data []byte, ctype string, maxWidth int, interpolator string) (out []byte, resized bool, err error) {
	interpol, err := getInterpolatorByName(interpolator)
	if err != nil {
		return nil, false, fmt.Errorf("get interpolator: %w", err)
	}

	original, err := decodeImage(bytes.NewReader(data), ctype)
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	bounds := original.Bounds()
	if bounds.Dx() <= maxWidth {
		return data, false, nil
	}

	ratio := float64(maxWidth) / float64(bounds.Dx())
	height := max(int(float64(bounds.Dy())*ratio), 1)

	bitmap := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	interpol.Scale(bitmap, bitmap.Bounds(), original, bounds, draw.Over, nil)

	out, err = encodeImage(bitmap, ctype)
	if err != nil {
		return nil, false, fmt.Errorf("encode image: %w", err)
	}

	return out, true, nil
}

func decodeImage(reader io.Reader, ctype string) (image.Image, error) {
	decoder, err := getDecoderByType(ctype)
	if err != nil {
		return nil, err
	}

	return decoder(reader)
}

func encodeImage(bitmap image.Image, ctype string) ([]byte, error) {
	var buffer bytes.Buffer

	encoder, err := getEncoderByType(ctype)
	if err != nil {
		return nil, fmt.Errorf("get encoder: %w", err)
	}

	if err := encoder(&buffer, bitmap); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return buffer.Bytes(), nil
}

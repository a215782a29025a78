package imagesvc

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/mkrupp/voicechat/internal/util/mimetype"
)

// ErrImageTypeNotSupported is returned when an image is neither JPEG nor PNG.
var ErrImageTypeNotSupported = errors.New("image type not supported")

//nolint:gochecknoglobals
var (
	imageHeaders = map[string][]string{
		mimetype.ImageJPEG: {"\xFF\xD8"},
		mimetype.ImagePNG:  {"\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"},
	}

	imageDecoders = map[string]func(io.Reader) (image.Image, error){
		mimetype.ImageJPEG: jpeg.Decode,
		mimetype.ImagePNG:  png.Decode,
	}

	imageEncoders = map[string]func(io.Writer, image.Image) error{
		mimetype.ImageJPEG: func(w io.Writer, i image.Image) error {
			return jpeg.Encode(w, i, &jpeg.Options{Quality: jpeg.DefaultQuality})
		},
		mimetype.ImagePNG: png.Encode,
	}
)

// DetectType returns the MIME type of a JPEG or PNG image by its magic bytes,
// or an empty string if the data is neither.
func DetectType(data []byte) string {
	for mimeType, headers := range imageHeaders {
		for _, header := range headers {
			if strings.HasPrefix(string(data), header) {
				return mimeType
			}
		}
	}

	return ""
}

func getDecoderByType(mimeType string) (func(io.Reader) (image.Image, error), error) {
	decoder, ok := imageDecoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrImageTypeNotSupported, mimeType)
	}

	return decoder, nil
}

func getEncoderByType(mimeType string) (func(io.Writer, image.Image) error, error) {
	encoder, ok := imageEncoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrImageTypeNotSupported, mimeType)
	}

	return encoder, nil
}

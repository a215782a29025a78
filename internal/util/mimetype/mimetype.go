package mimetype

import (
	"path/filepath"
	"strings"
)

const (
	ImageJPEG   = "image/jpeg"
	ImagePNG    = "image/png"
	ImageGIF    = "image/gif"
	AudioMPEG   = "audio/mpeg"
	AudioMP4    = "audio/mp4"
	AudioAAC    = "audio/aac"
	AudioWAV    = "audio/wav"
	AudioOGG    = "audio/ogg"
	VideoAVI    = "video/x-msvideo"
	VideoMOV    = "video/quicktime"
	OctetStream = "application/octet-stream"
)

//nolint:gochecknoglobals
var (
	pictureExtTypes = map[string]string{
		".jpg":  ImageJPEG,
		".jpeg": ImageJPEG,
		".png":  ImagePNG,
		".gif":  ImageGIF,
	}

	audioExtTypes = map[string]string{
		".mp3": AudioMPEG,
		".m4a": AudioMP4,
		".mp4": AudioMP4,
		".aac": AudioAAC,
		".wav": AudioWAV,
		".ogg": AudioOGG,
	}

	videoExtTypes = map[string]string{
		".avi": VideoAVI,
		".mov": VideoMOV,
	}
)

func byExt(types map[string]string, name string) string {
	if mimeType, ok := types[strings.ToLower(filepath.Ext(name))]; ok {
		return mimeType
	}

	return OctetStream
}

// Picture returns the content type of an image part by its file name.
func Picture(name string) string {
	return byExt(pictureExtTypes, name)
}

// Audio returns the content type of an audio part by its file name.
func Audio(name string) string {
	return byExt(audioExtTypes, name)
}

// Media returns the content type of a message attachment, which may be
// a picture, a recording or a video.
func Media(name string) string {
	if mimeType := Picture(name); mimeType != OctetStream {
		return mimeType
	}

	if mimeType := Audio(name); mimeType != OctetStream {
		return mimeType
	}

	return byExt(videoExtTypes, name)
}

// Allowed reports whether the chat backend accepts an upload with this name.
func Allowed(name string) bool {
	return Media(name) != OctetStream
}

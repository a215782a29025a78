package imagesvc

import (
	"context"

	"github.com/mkrupp/voicechat/internal/domain"
)

// ImageService prepares pictures before they are uploaded.
type ImageService interface {
	// Prepare returns the file to upload in place of the given picture.
	// Files that need no processing are returned as is.
	Prepare(ctx context.Context, file *domain.File) (*domain.File, error)
}

package imagesvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// ResizingImageService implements ImageService by downscaling JPEG and PNG
// pictures wider than the configured maximum width.
type ResizingImageService struct {
	log logging.Logger
	cfg ImageConfig
}

var _ ImageService = (*ResizingImageService)(nil)

// NewResizingImageService creates a new ResizingImageService.
// It returns an error if the configured interpolator is unknown.
func NewResizingImageService(cfg ImageConfig) (*ResizingImageService, error) {
	if _, err := getInterpolatorByName(cfg.Interpolator); err != nil {
		return nil, err
	}

	return &ResizingImageService{
		log: logging.GetLogger("svc.imagesvc"),
		cfg: cfg,
	}, nil
}

// Prepare implements ImageService.Prepare. Files of other types, and any file
// when MaxWidth is 0, are returned unchanged. The file name is kept, so the
// upload is typed the same way as the original.
func (s *ResizingImageService) Prepare(ctx context.Context, file *domain.File) (out *domain.File, err error) {
	if file == nil || s.cfg.MaxWidth <= 0 {
		return file, nil
	}

	ctype := DetectType(file.Data)
	if ctype == "" {
		return file, nil
	}

	log := s.log.With(logging.Group("picture",
		"name", file.Name,
		"type", ctype,
		"size", file.Size(),
	))

	data, resized, err := downscale(file.Data, ctype, s.cfg.MaxWidth, s.cfg.Interpolator)
	if err != nil {
		log.WarnContext(ctx, "downscale picture failed", "error", err)

		return nil, fmt.Errorf("downscale %s: %w", file.Name, err)
	}

	if !resized {
		return file, nil
	}

	log.DebugContext(ctx, "picture downscaled", "new_size", len(data), "max_width", s.cfg.MaxWidth)

	return domain.NewFile(file.Name, data), nil
}

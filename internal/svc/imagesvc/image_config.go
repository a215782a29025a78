package imagesvc

// ImageConfig holds configuration parameters for the image service.
type ImageConfig struct {
	// MaxWidth is the widest picture uploaded unchanged; wider pictures are
	// downscaled to this width. 0 disables downscaling.
	MaxWidth int `env:"MAX_WIDTH" default:"0"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`
}

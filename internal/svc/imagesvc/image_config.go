package imagesvc

// ImageConfig holds configuration parameters for the image service.
type ImageConfig struct {
	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64 `env:"MAX_SIZE" default:"10485760"`

	// MaxWidth is the width wider images are scaled down to. 0 keeps every image as uploaded.
	MaxWidth int `env:"MAX_WIDTH" default:"2048"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`
}

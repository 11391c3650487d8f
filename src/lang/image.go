package lang

// BaseImageSource supplies the inputs for base image resolution: a captured
// environment and any configured per-language images.
type BaseImageSource interface {
	Getenv(key string) string
	ConfiguredBaseImage(language string) string
}

// ResolveBaseImage returns the base image for p. A non-empty
// WHANOS_BASE_IMAGE_<LANG> wins, then the configured image, then the default.
func ResolveBaseImage(p Profile, src BaseImageSource) string {
	if src != nil {
		if img := src.Getenv(p.BaseImageEnv()); img != "" {
			return img
		}
		if img := src.ConfiguredBaseImage(p.Name()); img != "" {
			return img
		}
	}
	return p.DefaultBaseImage()
}

package texture

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// TextureBuilderOption is a function that configures a texture before upload.
type TextureBuilderOption func(*textureImpl)

// WithFormat sets the image format. Color textures default to sRGB; normal maps want
// gpu.FormatRGBA8Unorm.
//
// Parameters:
//   - format: an 8-bit RGBA format
//
// Returns:
//   - TextureBuilderOption: a function that sets the format
func WithFormat(format gpu.Format) TextureBuilderOption {
	return func(t *textureImpl) {
		t.format = format
	}
}

// WithMipmaps enables or disables mip chain generation. Enabled by default for 2D textures.
func WithMipmaps(enabled bool) TextureBuilderOption {
	return func(t *textureImpl) {
		t.mips = enabled
	}
}

// WithFilter sets the sampler filter for magnification, minification and mip selection.
func WithFilter(filter gpu.Filter) TextureBuilderOption {
	return func(t *textureImpl) {
		t.filter = filter
	}
}

// WithAddressMode sets the sampler wrap mode.
func WithAddressMode(mode gpu.AddressMode) TextureBuilderOption {
	return func(t *textureImpl) {
		t.address = mode
	}
}

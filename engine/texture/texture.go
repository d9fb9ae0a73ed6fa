// Package texture uploads decoded pixels into sampled GPU images through the blocking
// upload path of a command.Recorder.
package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/command"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/resource"
)

// CubeFaces is the number of layers of a cube texture, ordered right, left, up, down, back, front.
const CubeFaces = 6

type textureImpl struct {
	dev       gpu.Device
	label     string
	format    gpu.Format
	mips      bool
	filter    gpu.Filter
	address   gpu.AddressMode
	width     uint32
	height    uint32
	mipLevels uint32
	layers    uint32
	image     gpu.Image
	view      gpu.ImageView
	sampler   gpu.Sampler
}

// Texture defines a sampled image with its view and sampler.
type Texture interface {
	Image() gpu.Image
	View() gpu.ImageView
	Sampler() gpu.Sampler

	// Width returns the width of mip level 0.
	Width() uint32

	// Height returns the height of mip level 0.
	Height() uint32

	// MipLevels returns the number of mip levels in the image.
	MipLevels() uint32

	// Layers returns 1 for 2D textures and CubeFaces for cube textures.
	Layers() uint32

	// Destroy releases the sampler, view and image. Safe to call twice.
	Destroy()
}

var _ Texture = &textureImpl{}

// New creates a 2D texture from decoded pixels and blocks until the upload completes.
// The full mip chain floor(log2(max(w,h)))+1 is generated unless disabled with WithMipmaps(false).
//
// Parameters:
//   - dev: the device to create the image on
//   - rec: the recorder that performs the upload
//   - label: a debug label
//   - data: RGBA8 pixels
//   - options: TextureBuilderOption values
//
// Returns:
//   - Texture: the uploaded texture
//   - error: wraps gpu.ErrSetupFailure when creation or upload fails
func New(dev gpu.Device, rec command.Recorder, label string, data common.TextureData, options ...TextureBuilderOption) (Texture, error) {
	t := newTexture(dev, label, options...)
	if err := t.upload(rec, []common.TextureData{data}, false); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// NewCube creates a cube texture from six equally sized faces.
//
// Parameters:
//   - dev: the device to create the image on
//   - rec: the recorder that performs the upload
//   - label: a debug label
//   - faces: the faces in right, left, up, down, back, front order
//   - options: TextureBuilderOption values
//
// Returns:
//   - Texture: the uploaded cube texture
//   - error: when the faces differ in size, or creation or upload fails
func NewCube(dev gpu.Device, rec command.Recorder, label string, faces [CubeFaces]common.TextureData, options ...TextureBuilderOption) (Texture, error) {
	for i := 1; i < CubeFaces; i++ {
		if faces[i].Width != faces[0].Width || faces[i].Height != faces[0].Height {
			return nil, fmt.Errorf("texture %q: face %d is %dx%d, face 0 is %dx%d: %w",
				label, i, faces[i].Width, faces[i].Height, faces[0].Width, faces[0].Height, gpu.ErrSetupFailure)
		}
	}
	t := newTexture(dev, label, append([]TextureBuilderOption{WithMipmaps(false), WithAddressMode(gpu.AddressModeClampToEdge)}, options...)...)
	if err := t.upload(rec, faces[:], true); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

func newTexture(dev gpu.Device, label string, options ...TextureBuilderOption) *textureImpl {
	if dev == nil {
		panic("texture: a device is required")
	}
	t := &textureImpl{
		dev:     dev,
		label:   label,
		format:  gpu.FormatRGBA8Srgb,
		mips:    true,
		filter:  gpu.FilterLinear,
		address: gpu.AddressModeRepeat,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *textureImpl) upload(rec command.Recorder, layers []common.TextureData, cube bool) error {
	first := layers[0]
	if first.Width == 0 || first.Height == 0 {
		return fmt.Errorf("texture %q: empty image: %w", t.label, gpu.ErrSetupFailure)
	}
	layerSize := int(first.Width) * int(first.Height) * 4
	staged := make([]byte, 0, layerSize*len(layers))
	for i, l := range layers {
		if len(l.Pixels) != layerSize {
			return fmt.Errorf("texture %q: layer %d holds %d bytes, want %d: %w", t.label, i, len(l.Pixels), layerSize, gpu.ErrSetupFailure)
		}
		staged = append(staged, l.Pixels...)
	}

	t.width, t.height = first.Width, first.Height
	t.layers = uint32(len(layers))
	t.mipLevels = 1
	if t.mips {
		t.mipLevels = common.MipLevels(t.width, t.height)
	}

	staging, err := resource.NewBufferWithData(t.dev, t.label+" staging", gpu.BufferUsageTransferSrc, staged)
	if err != nil {
		return fmt.Errorf("texture %q: %w", t.label, err)
	}
	defer staging.Destroy()

	t.image, err = t.dev.CreateImage(gpu.ImageDescriptor{
		Label:          t.label,
		Extent:         gpu.Extent2D{Width: t.width, Height: t.height},
		MipLevels:      t.mipLevels,
		ArrayLayers:    t.layers,
		Format:         t.format,
		Usage:          gpu.ImageUsageSampled | gpu.ImageUsageTransferDst | gpu.ImageUsageTransferSrc,
		Samples:        1,
		CubeCompatible: cube,
	})
	if err != nil {
		return fmt.Errorf("texture %q: %w", t.label, err)
	}

	subRange := gpu.SubresourceRange{
		Aspect:     gpu.ImageAspectColor,
		LevelCount: t.mipLevels,
		LayerCount: t.layers,
	}
	target := command.Target{Image: t.image, Width: t.width, Height: t.height}
	if err := rec.SingleSubmit(target, staging.Handle(), subRange, t.mipLevels > 1); err != nil {
		return fmt.Errorf("texture %q: upload: %w", t.label, err)
	}

	viewType := gpu.ImageViewType2D
	if cube {
		viewType = gpu.ImageViewTypeCube
	}
	t.view, err = t.dev.CreateImageView(gpu.ImageViewDescriptor{
		Label:    t.label,
		Image:    t.image,
		ViewType: viewType,
		Format:   t.format,
		Range:    subRange,
	})
	if err != nil {
		return fmt.Errorf("texture %q: %w", t.label, err)
	}

	t.sampler, err = t.dev.CreateSampler(gpu.SamplerDescriptor{
		Label:       t.label,
		MagFilter:   t.filter,
		MinFilter:   t.filter,
		MipFilter:   t.filter,
		AddressMode: t.address,
		MaxLod:      float32(t.mipLevels),
	})
	if err != nil {
		return fmt.Errorf("texture %q: %w", t.label, err)
	}
	return nil
}

func (t *textureImpl) Image() gpu.Image     { return t.image }
func (t *textureImpl) View() gpu.ImageView  { return t.view }
func (t *textureImpl) Sampler() gpu.Sampler { return t.sampler }
func (t *textureImpl) Width() uint32        { return t.width }
func (t *textureImpl) Height() uint32       { return t.height }
func (t *textureImpl) MipLevels() uint32    { return t.mipLevels }
func (t *textureImpl) Layers() uint32       { return t.layers }

func (t *textureImpl) Destroy() {
	if t.sampler != 0 {
		t.dev.DestroySampler(t.sampler)
		t.sampler = 0
	}
	if t.view != 0 {
		t.dev.DestroyImageView(t.view)
		t.view = 0
	}
	if t.image != 0 {
		t.dev.DestroyImage(t.image)
		t.image = 0
	}
}

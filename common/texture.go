// package common contains helpers shared across the engine: alignment and matrix byte packing,
// frustum planes, and texture decoding. They are plain functions and structs, not interface-wrapped.
package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureData is decoded RGBA8 pixel data ready for upload.
type TextureData struct {
	// Pixels holds Width*Height*4 bytes, row-major, tightly packed.
	Pixels []byte
	Width  uint32
	Height uint32
	// Channels is always 4 after decoding; the source channel count is not preserved.
	Channels uint32
	// MipLevels is the full chain length for Width x Height.
	MipLevels uint32
}

// ImportedTexture names an image either on disk (Path) or in memory (Data).
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "diffuse", "skybox right").
	Name string

	// Path is the file path of the image. Ignored when Data is set.
	Path string

	// Data contains raw encoded image bytes (PNG, JPEG, BMP, TIFF or WebP).
	Data []byte
}

// Decode decodes the texture to RGBA8 pixel data.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureData: the pixels, size and mip count
//   - error: error if reading or decoding fails
func (t *ImportedTexture) Decode() (TextureData, error) {
	if t == nil {
		return TextureData{}, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	if len(t.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureData{}, fmt.Errorf("failed to decode embedded image %q: %w", t.Name, err)
		}
	} else if t.Path != "" {
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	} else {
		return TextureData{}, fmt.Errorf("texture %q has neither data nor path", t.Name)
	}

	return FromImage(img), nil
}

// FromImage converts any image to tightly packed RGBA8 TextureData.
func FromImage(img image.Image) TextureData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	w, h := uint32(bounds.Dx()), uint32(bounds.Dy())
	return TextureData{
		Pixels:    rgba.Pix,
		Width:     w,
		Height:    h,
		Channels:  4,
		MipLevels: MipLevels(w, h),
	}
}

// Downsample scales a tightly packed RGBA8 image of srcW x srcH into dstW x dstH with bilinear filtering.
//
// Parameters:
//   - pixels: the source pixels
//   - srcW, srcH: the source size
//   - dstW, dstH: the destination size
//
// Returns:
//   - []byte: the destination pixels, dstW*dstH*4 bytes
func Downsample(pixels []byte, srcW, srcH, dstW, dstH int) []byte {
	src := &image.RGBA{Pix: pixels, Stride: srcW * 4, Rect: image.Rect(0, 0, srcW, srcH)}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst.Pix
}

// SolidTexture returns a w x h texture filled with one RGBA8 color.
func SolidTexture(w, h uint32, rgba [4]byte) TextureData {
	pix := make([]byte, int(w*h*4))
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], rgba[:])
	}
	return TextureData{Pixels: pix, Width: w, Height: h, Channels: 4, MipLevels: MipLevels(w, h)}
}

// DecodeTextures decodes a batch of textures concurrently on a worker pool and returns them in input order.
// The first decode error is returned after every task has finished.
//
// Parameters:
//   - pool: the worker pool to run decodes on; when nil a temporary pool sized to the batch is used
//   - textures: the textures to decode
//
// Returns:
//   - []TextureData: the decoded textures, index-aligned with textures
//   - error: the first decode failure
func DecodeTextures(pool worker.DynamicWorkerPool, textures []ImportedTexture) ([]TextureData, error) {
	if len(textures) == 0 {
		return nil, nil
	}
	if pool == nil {
		pool = worker.NewDynamicWorkerPool(len(textures), len(textures), time.Second)
		defer pool.Stop()
	}

	out := make([]TextureData, len(textures))
	errs := make([]error, len(textures))
	var wg sync.WaitGroup
	for i := range textures {
		wg.Add(1)
		idx := i
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				out[idx], errs[idx] = textures[idx].Decode()
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

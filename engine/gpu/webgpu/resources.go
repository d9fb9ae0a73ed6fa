package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Buffers keep a CPU shadow. MapBuffer hands out the shadow and UnmapBuffer writes
// the touched range to the device buffer through the queue.

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := common.AlignUp(desc.Size, 4)
	b := &buffer{desc: desc, shadow: make([]byte, size)}
	if gpuBacked(desc.Usage) {
		var err error
		b.handle, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Label,
			Size:  size,
			Usage: bufferUsage(desc.Usage),
		})
		if err != nil {
			return 0, fmt.Errorf("webgpu: create buffer %q: %w: %w", desc.Label, gpu.ErrSetupFailure, err)
		}
	}
	h := gpu.Buffer(d.alloc())
	d.buffers[h] = b
	return h, nil
}

func (d *Device) MapBuffer(h gpu.Buffer, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("webgpu: map buffer %d: %w", h, gpu.ErrUnknownHandle)
	}
	if offset+size > b.desc.Size {
		return nil, fmt.Errorf("webgpu: map %d bytes at %d of buffer %q (%d bytes): %w", size, offset, b.desc.Label, b.desc.Size, gpu.ErrResourceExhausted)
	}
	if b.dirtyHi == 0 {
		b.dirtyLo, b.dirtyHi = offset, offset+size
	} else {
		b.dirtyLo, b.dirtyHi = min(b.dirtyLo, offset), max(b.dirtyHi, offset+size)
	}
	return b.shadow[offset : offset+size], nil
}

func (d *Device) UnmapBuffer(h gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok || b.dirtyHi == 0 {
		return
	}
	if b.handle != nil {
		lo := b.dirtyLo &^ 3
		hi := min(common.AlignUp(b.dirtyHi, 4), uint64(len(b.shadow)))
		d.queue.WriteBuffer(b.handle, lo, b.shadow[lo:hi])
	}
	b.dirtyLo, b.dirtyHi = 0, 0
}

func (d *Device) DestroyBuffer(h gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.buffers[h]; ok {
		if b.handle != nil {
			b.handle.Release()
		}
		delete(d.buffers, h)
	}
}

func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     textureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Extent.Width,
			Height:             desc.Extent.Height,
			DepthOrArrayLayers: max(desc.ArrayLayers, 1),
		},
		Format:        textureFormat(desc.Format),
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   max(desc.Samples, 1),
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create image %q: %w: %w", desc.Label, gpu.ErrSetupFailure, err)
	}
	h := gpu.Image(d.alloc())
	d.images[h] = &image{desc: desc, texture: tex}
	return h, nil
}

func (d *Device) DestroyImage(h gpu.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img, ok := d.images[h]; ok {
		img.texture.Release()
		delete(d.images, h)
	}
}

func (d *Device) CreateImageView(desc gpu.ImageViewDescriptor) (gpu.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, ok := d.images[desc.Image]
	if !ok {
		return 0, fmt.Errorf("webgpu: create image view %q: %w", desc.Label, gpu.ErrUnknownHandle)
	}
	levels := desc.Range.LevelCount
	if levels == gpu.RemainingMipLevels {
		levels = max(img.desc.MipLevels, 1) - desc.Range.BaseMipLevel
	}
	layers := desc.Range.LayerCount
	if layers == gpu.RemainingArrayLayers {
		layers = max(img.desc.ArrayLayers, 1) - desc.Range.BaseArrayLayer
	}

	view, err := img.texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          textureFormat(desc.Format),
		Dimension:       viewDimension(desc.ViewType),
		BaseMipLevel:    desc.Range.BaseMipLevel,
		MipLevelCount:   max(levels, 1),
		BaseArrayLayer:  desc.Range.BaseArrayLayer,
		ArrayLayerCount: max(layers, 1),
		Aspect:          textureAspect(desc.Range.Aspect),
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create image view %q: %w: %w", desc.Label, gpu.ErrSetupFailure, err)
	}
	h := gpu.ImageView(d.alloc())
	d.views[h] = &imageView{desc: desc, view: view}
	return h, nil
}

func (d *Device) DestroyImageView(h gpu.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.views[h]; ok && !v.swap {
		v.view.Release()
		delete(d.views, h)
	}
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  addressMode(desc.AddressMode),
		AddressModeV:  addressMode(desc.AddressMode),
		AddressModeW:  addressMode(desc.AddressMode),
		MagFilter:     filterMode(desc.MagFilter),
		MinFilter:     filterMode(desc.MinFilter),
		MipmapFilter:  mipmapFilter(desc.MipFilter),
		LodMinClamp:   0,
		LodMaxClamp:   max(desc.MaxLod, 1),
		MaxAnisotropy: 1,
	}
	if desc.Compare {
		sd.Compare = wgpu.CompareFunctionLessEqual
	}
	s, err := d.device.CreateSampler(sd)
	if err != nil {
		return 0, fmt.Errorf("webgpu: create sampler %q: %w: %w", desc.Label, gpu.ErrSetupFailure, err)
	}
	h := gpu.Sampler(d.alloc())
	d.samplers[h] = s
	return h, nil
}

func (d *Device) DestroySampler(h gpu.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.samplers[h]; ok {
		s.Release()
		delete(d.samplers, h)
	}
}

func (d *Device) CreateShaderModule(label string, code []byte) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(code)},
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create shader module %q: %w: %w", label, gpu.ErrSetupFailure, err)
	}
	h := gpu.ShaderModule(d.alloc())
	d.shaders[h] = m
	return h, nil
}

func (d *Device) DestroyShaderModule(h gpu.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if m, ok := d.shaders[h]; ok {
		m.Release()
		delete(d.shaders, h)
	}
}

package vulkan

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

const hostMemory = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// CreateBuffer allocates host-coherent memory and maps it for the lifetime of the buffer.
func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Size == 0 {
		return 0, fmt.Errorf("vulkan: create buffer %q: zero size: %w", desc.Label, gpu.ErrSetupFailure)
	}
	var handle vk.Buffer
	res := vk.CreateBuffer(d.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       bufferUsage(desc.Usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &handle)
	if err := check(res, "create buffer "+desc.Label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, handle, &req)
	mem, err := d.allocate(req, hostMemory)
	if err != nil {
		vk.DestroyBuffer(d.device, handle, nil)
		return 0, err
	}
	if err := check(vk.BindBufferMemory(d.device, handle, mem, 0), "bind buffer memory", gpu.ErrSetupFailure); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyBuffer(d.device, handle, nil)
		return 0, err
	}
	var mapped unsafe.Pointer
	if err := check(vk.MapMemory(d.device, mem, 0, vk.DeviceSize(desc.Size), 0, &mapped), "map memory", gpu.ErrSetupFailure); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyBuffer(d.device, handle, nil)
		return 0, err
	}

	h := gpu.Buffer(d.alloc())
	d.buffers[h] = &buffer{desc: desc, handle: handle, memory: mem, mapped: mapped}
	return h, nil
}

// MapBuffer returns a slice over the persistent mapping. Writes are visible to the
// device without a flush.
func (d *Device) MapBuffer(h gpu.Buffer, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("vulkan: map buffer %d: %w", h, gpu.ErrUnknownHandle)
	}
	if offset+size > b.desc.Size {
		return nil, fmt.Errorf("vulkan: map %d bytes at %d of buffer %q (%d bytes): %w", size, offset, b.desc.Label, b.desc.Size, gpu.ErrResourceExhausted)
	}
	if size == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(unsafe.Add(b.mapped, offset)), size), nil
}

// UnmapBuffer is a no-op; buffers stay mapped until destroyed.
func (d *Device) UnmapBuffer(gpu.Buffer) {}

func (d *Device) DestroyBuffer(h gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyBuffer(h)
}

func (d *Device) destroyBuffer(h gpu.Buffer) {
	b, ok := d.buffers[h]
	if !ok {
		return
	}
	vk.UnmapMemory(d.device, b.memory)
	vk.DestroyBuffer(d.device, b.handle, nil)
	vk.FreeMemory(d.device, b.memory, nil)
	delete(d.buffers, h)
}

func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format(desc.Format),
		Extent:        vk.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
		MipLevels:     max(desc.MipLevels, 1),
		ArrayLayers:   max(desc.ArrayLayers, 1),
		Samples:       sampleCount(desc.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if desc.CubeCompatible {
		info.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	var handle vk.Image
	if err := check(vk.CreateImage(d.device, &info, nil, &handle), "create image "+desc.Label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, handle, &req)
	mem, err := d.allocate(req, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(d.device, handle, nil)
		return 0, err
	}
	if err := check(vk.BindImageMemory(d.device, handle, mem, 0), "bind image memory", gpu.ErrSetupFailure); err != nil {
		vk.FreeMemory(d.device, mem, nil)
		vk.DestroyImage(d.device, handle, nil)
		return 0, err
	}

	h := gpu.Image(d.alloc())
	d.images[h] = &image{desc: desc, handle: handle, memory: mem}
	return h, nil
}

func (d *Device) DestroyImage(h gpu.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyImage(h)
}

func (d *Device) destroyImage(h gpu.Image) {
	img, ok := d.images[h]
	if !ok {
		return
	}
	vk.DestroyImage(d.device, img.handle, nil)
	vk.FreeMemory(d.device, img.memory, nil)
	delete(d.images, h)
}

// newView creates a raw image view. Called with the lock held.
func (d *Device) newView(img vk.Image, t vk.ImageViewType, f vk.Format, r vk.ImageSubresourceRange) (vk.ImageView, error) {
	var view vk.ImageView
	res := vk.CreateImageView(d.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: t,
		Format:   f,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: r,
	}, nil, &view)
	if err := check(res, "create image view", gpu.ErrSetupFailure); err != nil {
		return vk.ImageView(vk.NullHandle), err
	}
	return view, nil
}

func (d *Device) CreateImageView(desc gpu.ImageViewDescriptor) (gpu.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, ok := d.images[desc.Image]
	if !ok {
		return 0, fmt.Errorf("vulkan: create view %q of image %d: %w", desc.Label, desc.Image, gpu.ErrUnknownHandle)
	}
	f := desc.Format
	if f == gpu.FormatUndefined {
		f = img.desc.Format
	}
	r := desc.Range
	if r.Aspect == 0 {
		r.Aspect = gpu.ImageAspectColor
		if f.IsDepth() {
			r.Aspect = gpu.ImageAspectDepth
		}
	}
	view, err := d.newView(img.handle, viewType(desc.ViewType), format(f), subresourceRange(r))
	if err != nil {
		return 0, fmt.Errorf("vulkan: view %q: %w", desc.Label, err)
	}
	h := gpu.ImageView(d.alloc())
	d.views[h] = &imageView{handle: view}
	return h, nil
}

func (d *Device) DestroyImageView(h gpu.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Swapchain views go with the swapchain.
	if v, ok := d.views[h]; ok && !v.swap {
		d.destroyImageView(h)
	}
}

func (d *Device) destroyImageView(h gpu.ImageView) {
	if v, ok := d.views[h]; ok {
		vk.DestroyImageView(d.device, v.handle, nil)
		delete(d.views, h)
	}
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mode := addressMode(desc.AddressMode)
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter(desc.MagFilter),
		MinFilter:               filter(desc.MinFilter),
		MipmapMode:              mipmapMode(desc.MipFilter),
		AddressModeU:            mode,
		AddressModeV:            mode,
		AddressModeW:            mode,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MaxLod:                  desc.MaxLod,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
	}
	if desc.Compare {
		info.CompareEnable = vk.True
		info.CompareOp = vk.CompareOpLessOrEqual
	}
	var s vk.Sampler
	if err := check(vk.CreateSampler(d.device, &info, nil, &s), "create sampler "+desc.Label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.Sampler(d.alloc())
	d.samplers[h] = s
	return h, nil
}

func (d *Device) DestroySampler(h gpu.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroySampler(h)
}

func (d *Device) destroySampler(h gpu.Sampler) {
	if s, ok := d.samplers[h]; ok {
		vk.DestroySampler(d.device, s, nil)
		delete(d.samplers, h)
	}
}

// spirvWords decodes little-endian SPIR-V into words.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V length %d is not a positive multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

// CreateShaderModule wraps SPIR-V code.
func (d *Device) CreateShaderModule(label string, code []byte) (gpu.ShaderModule, error) {
	words, err := spirvWords(code)
	if err != nil {
		return 0, fmt.Errorf("vulkan: shader %q: %w: %w", label, gpu.ErrSetupFailure, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var module vk.ShaderModule
	res := vk.CreateShaderModule(d.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}, nil, &module)
	if err := check(res, "create shader module "+label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.ShaderModule(d.alloc())
	d.shaders[h] = module
	return h, nil
}

func (d *Device) DestroyShaderModule(h gpu.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyShaderModule(h)
}

func (d *Device) destroyShaderModule(h gpu.ShaderModule) {
	if m, ok := d.shaders[h]; ok {
		vk.DestroyShaderModule(d.device, m, nil)
		delete(d.shaders, h)
	}
}

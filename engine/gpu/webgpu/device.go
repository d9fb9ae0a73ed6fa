// Package webgpu implements gpu.Device on WebGPU through the cogentcore wgpu bindings.
//
// WebGPU has no explicit synchronization or reusable command buffers, so the device
// emulates them: command buffers record closures that are replayed into a fresh
// command encoder at submit, fences signal when their submission is handed to the
// queue (queue writes are ordered against earlier submissions), semaphores and
// barriers are bookkeeping only, buffer to image copies become queue texture writes
// and mip blits are computed on the CPU.
package webgpu

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// swapImages is the number of swapchain views the device hands out. WebGPU surfaces
// expose one current texture at a time; the views alias it in turn.
const swapImages = 2

// maxSampleCount is the largest MSAA sample count WebGPU guarantees.
const maxSampleCount = 4

type buffer struct {
	desc    gpu.BufferDescriptor
	handle  *wgpu.Buffer
	shadow  []byte
	dirtyLo uint64
	dirtyHi uint64
}

type image struct {
	desc    gpu.ImageDescriptor
	texture *wgpu.Texture
	// levels holds CPU copies of uploaded texels by layer and mip for the blit emulation.
	levels map[[2]uint32][]byte
}

type imageView struct {
	desc gpu.ImageViewDescriptor
	view *wgpu.TextureView
	// swap is set for swapchain views, which resolve to the surface texture acquired this frame.
	swap bool
}

type setLayout struct {
	bindings []gpu.DescriptorBinding
	layout   *wgpu.BindGroupLayout
}

type descriptorSet struct {
	layout *setLayout
	writes map[uint32]gpu.DescriptorWrite
	group  *wgpu.BindGroup
}

type pipeline struct {
	handle *wgpu.RenderPipeline
}

type commandBuffer struct {
	recording bool
	commands  []func(r *replay) error
	// err is the first recording error, reported by EndCommandBuffer.
	err error
}

// Device is a gpu.Device backed by a WebGPU adapter and surface.
type Device struct {
	mu   sync.Mutex
	next uint64

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	presentMode   wgpu.PresentMode
	forceFallback bool
	label         string

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	extent        gpu.Extent2D
	swapViews     []gpu.ImageView
	acquired      uint32
	frameTexture  *wgpu.Texture
	frameView     *wgpu.TextureView
	limits        gpu.Limits

	buffers         map[gpu.Buffer]*buffer
	images          map[gpu.Image]*image
	views           map[gpu.ImageView]*imageView
	samplers        map[gpu.Sampler]*wgpu.Sampler
	renderPasses    map[gpu.RenderPass]gpu.RenderPassDescriptor
	framebuffers    map[gpu.Framebuffer]gpu.FramebufferDescriptor
	shaders         map[gpu.ShaderModule]*wgpu.ShaderModule
	setLayouts      map[gpu.DescriptorSetLayout]*setLayout
	sets            map[gpu.DescriptorSet]*descriptorSet
	pipelineLayouts map[gpu.PipelineLayout]*wgpu.PipelineLayout
	pipelines       map[gpu.Pipeline]*pipeline
	fences          map[gpu.Fence]bool
	semaphores      map[gpu.Semaphore]struct{}
	commandBuffers  map[gpu.CommandBuffer]*commandBuffer
}

var _ gpu.Device = &Device{}

// New creates a WebGPU device presenting to the surface described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread, as the window system requires.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.Window.SurfaceDescriptor
//   - width, height: the initial surface size in pixels
//   - options: DeviceBuilderOption values
//
// Returns:
//   - *Device: the device
//   - error: wraps gpu.ErrSetupFailure when no adapter or device is available
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height uint32, options ...DeviceBuilderOption) (*Device, error) {
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("webgpu: nil surface descriptor: %w", gpu.ErrSetupFailure)
	}
	runtime.LockOSThread()

	d := &Device{
		presentMode:     wgpu.PresentModeFifo,
		label:           "oxy-vk",
		buffers:         make(map[gpu.Buffer]*buffer),
		images:          make(map[gpu.Image]*image),
		views:           make(map[gpu.ImageView]*imageView),
		samplers:        make(map[gpu.Sampler]*wgpu.Sampler),
		renderPasses:    make(map[gpu.RenderPass]gpu.RenderPassDescriptor),
		framebuffers:    make(map[gpu.Framebuffer]gpu.FramebufferDescriptor),
		shaders:         make(map[gpu.ShaderModule]*wgpu.ShaderModule),
		setLayouts:      make(map[gpu.DescriptorSetLayout]*setLayout),
		sets:            make(map[gpu.DescriptorSet]*descriptorSet),
		pipelineLayouts: make(map[gpu.PipelineLayout]*wgpu.PipelineLayout),
		pipelines:       make(map[gpu.Pipeline]*pipeline),
		fences:          make(map[gpu.Fence]bool),
		semaphores:      make(map[gpu.Semaphore]struct{}),
		commandBuffers:  make(map[gpu.CommandBuffer]*commandBuffer),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	var err error
	d.adapter, err = d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("webgpu: request adapter: %w: %w", gpu.ErrSetupFailure, err)
	}

	limits := wgpu.DefaultLimits()
	d.device, err = d.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          d.label,
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("webgpu: request device: %w: %w", gpu.ErrSetupFailure, err)
	}
	d.queue = d.device.GetQueue()
	d.limits = gpu.Limits{
		MinUniformBufferOffsetAlignment: uint64(max(limits.MinUniformBufferOffsetAlignment, 1)),
		MaxSampleCount:                  maxSampleCount,
	}

	caps := d.surface.GetCapabilities(d.adapter)
	if len(caps.Formats) == 0 {
		d.Close()
		return nil, fmt.Errorf("webgpu: surface reports no formats: %w", gpu.ErrSetupFailure)
	}
	d.surfaceFormat = caps.Formats[0]
	for _, f := range caps.Formats {
		if f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb {
			d.surfaceFormat = f
			break
		}
	}
	d.alphaMode = caps.AlphaModes[0]

	for range swapImages {
		d.next++
		h := gpu.ImageView(d.next)
		d.views[h] = &imageView{swap: true, desc: gpu.ImageViewDescriptor{Label: "swapchain", Format: engineFormat(d.surfaceFormat)}}
		d.swapViews = append(d.swapViews, h)
	}
	d.configure(width, height)

	log.Printf("[WebGPU] device ready: surface %dx%d, format %v", width, height, d.surfaceFormat)
	return d, nil
}

// configure (re)configures the surface. Called with the lock held or before the device is shared.
func (d *Device) configure(width, height uint32) {
	d.extent = gpu.Extent2D{Width: max(width, 1), Height: max(height, 1)}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       d.extent.Width,
		Height:      d.extent.Height,
		PresentMode: d.presentMode,
		AlphaMode:   d.alphaMode,
	})
}

// alloc returns a fresh handle. Called with the lock held.
func (d *Device) alloc() uint64 {
	d.next++
	return d.next
}

func (d *Device) Limits() gpu.Limits             { return d.limits }
func (d *Device) ShaderFormat() gpu.ShaderFormat { return gpu.ShaderFormatWGSL }
func (d *Device) SurfaceFormat() gpu.Format      { return engineFormat(d.surfaceFormat) }

func (d *Device) SwapchainExtent() gpu.Extent2D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extent
}

func (d *Device) SwapchainImageViews() []gpu.ImageView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.ImageView(nil), d.swapViews...)
}

func (d *Device) Resize(width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if width == 0 || height == 0 {
		return fmt.Errorf("webgpu: resize to %dx%d: %w", width, height, gpu.ErrInvalidState)
	}
	d.releaseFrame()
	d.configure(width, height)
	return nil
}

func (d *Device) WaitIdle() error {
	if d.device != nil {
		d.device.Poll(true, nil)
	}
	return nil
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseFrame()
	if d.device != nil {
		d.device.Poll(true, nil)
	}
	leaked := len(d.buffers) + len(d.images) + len(d.pipelines) + len(d.sets)
	if leaked > 0 {
		log.Printf("[WebGPU] close with %d live buffers, images, pipelines and sets", leaked)
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// releaseFrame drops the surface texture acquired for a frame that was never presented.
func (d *Device) releaseFrame() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameTexture != nil {
		d.frameTexture.Release()
		d.frameTexture = nil
	}
}

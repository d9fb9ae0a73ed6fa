package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/vulkan"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/webgpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// RendererBackendType identifies the GPU API behind the Renderer's device.
type RendererBackendType int

const (
	// BackendTypeVulkan selects the Vulkan device.
	BackendTypeVulkan RendererBackendType = iota

	// BackendTypeWGPU selects the WebGPU device. Semaphores and barriers are no-ops there and
	// fences signal on the CPU at submit.
	BackendTypeWGPU
)

func (b RendererBackendType) String() string {
	switch b {
	case BackendTypeVulkan:
		return "vulkan"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents without waiting for vertical blank. May tear.
	PresentModeUncapped
)

// MSAASampleCount is the sample count of the main pass. Requests above the device limit
// are clamped by the scene.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA2x  MSAASampleCount = 2
	MSAA4x  MSAASampleCount = 4
	MSAA8x  MSAASampleCount = 8
)

// deviceFactory opens a gpu.Device presenting to a window.
type deviceFactory func(r *renderer, win window.Window) (gpu.Device, error)

var deviceFactories = map[RendererBackendType]deviceFactory{
	BackendTypeVulkan: newVulkanDevice,
	BackendTypeWGPU:   newWGPUDevice,
}

func newVulkanDevice(r *renderer, win window.Window) (gpu.Device, error) {
	width, height := win.Size()
	d, err := vulkan.New(win, uint32(width), uint32(height),
		vulkan.WithVSync(r.presentMode == PresentModeVSync),
		vulkan.WithValidation(r.validation),
		vulkan.WithAppName(r.appName),
		vulkan.WithDescriptorPoolSize(r.descriptorSets),
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newWGPUDevice(r *renderer, win window.Window) (gpu.Device, error) {
	width, height := win.Size()
	d, err := webgpu.New(win.SurfaceDescriptor(), uint32(width), uint32(height),
		webgpu.WithVSync(r.presentMode == PresentModeVSync),
		webgpu.WithForceFallbackAdapter(r.forceFallbackAdapter),
		webgpu.WithLabel(r.appName),
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
